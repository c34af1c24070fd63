package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a deterministic demo dataset (users, products, orders)",
	Long: `Writes three linked demo tables into the configured store. The data
is fixed, so repeated runs produce identical analysis results: orders
reference users through user_id and products through product_id.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, rootCmd.Version)
		if err != nil {
			return err
		}
		defer app.close()

		for name, value := range map[string]models.Value{
			"users":    seedUsers(),
			"products": seedProducts(),
			"orders":   seedOrders(),
		} {
			if err := app.records.PutTable(ctx, name, value); err != nil {
				return fmt.Errorf("seed %s: %w", name, err)
			}
		}

		statusColor.Fprintln(os.Stderr, "Seeded users, products, orders")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seedUsers() models.Value {
	statuses := []string{"active", "active", "inactive", "active", "pending",
		"active", "inactive", "active", "active", "pending"}

	users := make([]models.Value, len(statuses))
	for i, status := range statuses {
		users[i] = models.Object(map[string]models.Value{
			"id":         models.Number(float64(i + 1)),
			"email":      models.String(fmt.Sprintf("user%d@example.com", i+1)),
			"username":   models.String(fmt.Sprintf("user%d", i+1)),
			"status":     models.String(status),
			"created_at": models.String(fmt.Sprintf("2024-01-%02d", i+1)),
		})
	}
	return models.Array(users...)
}

func seedProducts() models.Value {
	type product struct {
		name     string
		price    float64
		category string
	}
	catalog := []product{
		{"Mechanical Keyboard", 129.99, "peripherals"},
		{"Trackball Mouse", 54.50, "peripherals"},
		{"4K Monitor", 349.00, "displays"},
		{"Portable Monitor", 189.95, "displays"},
		{"USB-C Dock", 79.99, "accessories"},
		{"Laptop Stand", 39.99, "accessories"},
	}

	products := make([]models.Value, len(catalog))
	for i, p := range catalog {
		products[i] = models.Object(map[string]models.Value{
			"id":       models.Number(float64(i + 1)),
			"name":     models.String(p.name),
			"price":    models.Number(p.price),
			"category": models.String(p.category),
			"in_stock": models.Bool(i%3 != 2),
		})
	}
	return models.Array(products...)
}

func seedOrders() models.Value {
	orders := make([]models.Value, 20)
	for i := range orders {
		orders[i] = models.Object(map[string]models.Value{
			"id":         models.Number(float64(1000 + i)),
			"user_id":    models.Number(float64(i%10 + 1)),
			"product_id": models.Number(float64(i%6 + 1)),
			"quantity":   models.Number(float64(i%3 + 1)),
			"ordered_at": models.String(fmt.Sprintf("2024-02-%02dT09:%02d:00Z", i%28+1, i%60)),
		})
	}
	return models.Array(orders...)
}
