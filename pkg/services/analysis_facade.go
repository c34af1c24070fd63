package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// AnalysisService orchestrates schema inference and relationship analysis
// into one combined report.
type AnalysisService interface {
	// AnalyzeAll profiles every table: schema, column analysis, the
	// relationship list, statistics, and the ERD.
	AnalyzeAll(ctx context.Context) (*models.EngineReport, error)

	// AnalyzeTable returns the schema and analysis for a single table,
	// memoized until ClearCache. Missing or empty tables yield (nil, nil,
	// nil).
	AnalyzeTable(ctx context.Context, tableName string) (*models.Schema, *models.TableAnalysis, error)

	// ClearCache drops all memoized results here and in the underlying
	// relationship mapper.
	ClearCache()
}

type tableResult struct {
	schema   *models.Schema
	analysis *models.TableAnalysis
}

type analysisService struct {
	schemas       SchemaService
	relationships RelationshipService
	logger        *zap.Logger

	mu    sync.RWMutex
	cache map[string]*tableResult
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(schemas SchemaService, relationships RelationshipService, logger *zap.Logger) AnalysisService {
	return &analysisService{
		schemas:       schemas,
		relationships: relationships,
		logger:        logger.Named("analysis-facade"),
		cache:         make(map[string]*tableResult),
	}
}

func (s *analysisService) AnalyzeTable(ctx context.Context, tableName string) (*models.Schema, *models.TableAnalysis, error) {
	s.mu.RLock()
	cached, ok := s.cache[tableName]
	s.mu.RUnlock()
	if ok {
		return cached.schema, cached.analysis, nil
	}

	schema, err := s.schemas.GetSchema(ctx, tableName)
	if err != nil {
		return nil, nil, err
	}
	analysis, err := s.relationships.AnalyzeTable(ctx, tableName)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.cache[tableName] = &tableResult{schema: schema, analysis: analysis}
	s.mu.Unlock()

	return schema, analysis, nil
}

func (s *analysisService) AnalyzeAll(ctx context.Context) (*models.EngineReport, error) {
	report, err := s.relationships.AnalyzeAllTables(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make(map[string]*models.Schema, len(report.Tables))
	for name := range report.Tables {
		schema, _, err := s.AnalyzeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		if schema != nil {
			schemas[name] = schema
		}
	}

	erd, err := s.relationships.GenerateERD(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Completed full analysis",
		zap.Int("tables", report.Statistics.TotalTables),
		zap.Int("relationships", report.Statistics.RelationshipsFound))

	return &models.EngineReport{
		Schemas:       schemas,
		Tables:        report.Tables,
		Relationships: report.Relationships,
		Statistics:    report.Statistics,
		ERD:           erd,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

func (s *analysisService) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]*tableResult)
	s.mu.Unlock()
	s.relationships.ClearCache()
}
