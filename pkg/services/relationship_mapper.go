package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/adapters/store"
	"github.com/keyscope-dev/keyscope-engine/pkg/config"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// Primary-key scoring weights. A column must reach pkScoreFloor to be
// asserted as the table's key; anything lower is an explicit no-PK state.
const (
	pkScoreUniqueNonNull = 50
	pkScoreIDName        = 30
	pkScoreIDShaped      = 20
	pkScoreLowPresence   = -20 // applied when presence < pkPresenceFloor
	pkScoreLiteralID     = 40
	pkScoreLiteralPK     = 30
	pkPresenceFloor      = 0.9
	pkScoreFloor         = 50
)

// Foreign-key scoring weights.
const (
	fkScoreNaming       = 30
	fkScoreGuessedTable = 20
	fkScoreIDShaped     = 20
	fkScoreRepeatedRefs = 15
	fkScoreFloor        = 20

	// fkConfidenceDivisor scales a raw FK score into [0,1].
	fkConfidenceDivisor = 70.0

	// fkRepeatedRefsMinRatio: duplicates present and distinct values at
	// least this fraction of non-null observations.
	fkRepeatedRefsMinRatio = 0.3
)

// Cross-table relationship evaluation weights.
const (
	relWeightGuessedTable = 0.3
	relWeightPKMatch      = 0.2
	relWeightWeakIDMatch  = 0.1
	relWeightOverlap      = 0.3

	// OneToMany upgrade heuristic thresholds.
	oneToManyMinRawScore   = 50
	oneToManyMinConfidence = 0.7
)

// RelationshipService profiles tables and discovers probable cross-table
// relationships from naming conventions and value overlap.
type RelationshipService interface {
	// AnalyzeTable profiles one table: column statistics plus PK and FK
	// candidates. A missing or empty table yields (nil, nil).
	AnalyzeTable(ctx context.Context, tableName string) (*models.TableAnalysis, error)

	// AnalyzeAllTables profiles every table and evaluates every candidate
	// pair, returning the deduplicated relationship list sorted descending
	// by confidence.
	AnalyzeAllTables(ctx context.Context) (*models.AnalysisReport, error)

	// GenerateERD renders the current analysis as a diagram graph.
	GenerateERD(ctx context.Context) (*models.ERD, error)

	// SetConfidenceThreshold updates the retention threshold, clamping to
	// [0,1].
	SetConfidenceThreshold(threshold float64)

	// ConfidenceThreshold returns the current retention threshold.
	ConfidenceThreshold() float64

	// ClearCache drops cached per-table analyses. Purely a performance
	// reset; the next analysis returns identical results.
	ClearCache()
}

// tableEntry caches one table's analysis together with the per-column
// distinct value sets used for overlap computation.
type tableEntry struct {
	analysis  *models.TableAnalysis
	valueSets map[string]map[string]struct{}
}

type relationshipService struct {
	records store.RecordStore
	cfg     config.EngineConfig
	logger  *zap.Logger

	mu        sync.RWMutex
	threshold float64
	cache     map[string]*tableEntry
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(records store.RecordStore, cfg config.EngineConfig, logger *zap.Logger) RelationshipService {
	return &relationshipService{
		records:   records,
		cfg:       cfg,
		logger:    logger.Named("relationship-mapper"),
		threshold: clamp01(cfg.ConfidenceThreshold),
		cache:     make(map[string]*tableEntry),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *relationshipService) SetConfidenceThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = clamp01(threshold)
}

func (s *relationshipService) ConfidenceThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

func (s *relationshipService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*tableEntry)
}

func (s *relationshipService) AnalyzeTable(ctx context.Context, tableName string) (*models.TableAnalysis, error) {
	entry, err := s.tableEntry(ctx, tableName)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.analysis, nil
}

// tableEntry returns the cached analysis for a table, computing and caching
// it on first use. Returns (nil, nil) for missing or empty tables.
func (s *relationshipService) tableEntry(ctx context.Context, tableName string) (*tableEntry, error) {
	s.mu.RLock()
	entry, ok := s.cache[tableName]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	value, found, err := s.records.GetTable(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("get table %q: %w", tableName, err)
	}
	if !found {
		return nil, nil
	}

	recordCount, err := s.records.GetRecordCount(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("record count for %q: %w", tableName, err)
	}

	records, warnings := sampleTable(value, s.cfg.SampleSize)
	if len(records) == 0 {
		return nil, nil
	}

	analyses, order := buildColumnAnalyses(records, s.cfg.MaxExampleValues)

	analysis := &models.TableAnalysis{
		TableName:    tableName,
		RecordCount:  recordCount,
		SampledCount: len(records),
		Columns:      analyses,
		ColumnOrder:  order,
		Warnings:     warnings,
		AnalyzedAt:   time.Now().UTC(),
	}
	analysis.PrimaryKey = selectPrimaryKey(analysis)
	analysis.ForeignKeys = selectForeignKeys(analysis)

	entry = &tableEntry{
		analysis:  analysis,
		valueSets: buildValueSets(records, order),
	}

	s.mu.Lock()
	s.cache[tableName] = entry
	s.mu.Unlock()

	s.logger.Debug("Analyzed table",
		zap.String("table", tableName),
		zap.Int("columns", len(order)),
		zap.Int("foreign_key_candidates", len(analysis.ForeignKeys)))

	return entry, nil
}

// buildValueSets collects the stringified distinct non-null values per
// column, used later for overlap scoring.
func buildValueSets(records []models.Value, order []string) map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, len(order))
	for _, name := range order {
		sets[name] = make(map[string]struct{})
	}
	for _, record := range records {
		for _, name := range order {
			v := record.Field(name)
			if v.IsUndefined() || v.IsNull() {
				continue
			}
			sets[name][stringifyForSet(v)] = struct{}{}
		}
	}
	return sets
}

// selectPrimaryKey scores every column and returns the best candidate when
// it reaches the score floor. Ties resolve to the earlier column in the
// table's column order, so repeated analysis is deterministic.
func selectPrimaryKey(analysis *models.TableAnalysis) *models.PKCandidate {
	var best *models.PKCandidate
	for _, name := range analysis.ColumnOrder {
		score := scorePrimaryKey(analysis.Columns[name])
		if best == nil || score > best.Score {
			best = &models.PKCandidate{Column: name, Score: score}
		}
	}
	if best == nil || best.Score < pkScoreFloor {
		return nil
	}
	return best
}

func scorePrimaryKey(a *models.ColumnAnalysis) int {
	score := 0
	if a.Unique && !a.Nullable {
		score += pkScoreUniqueNonNull
	}
	if a.Patterns.IsID {
		score += pkScoreIDName
	}
	if a.Patterns.IsUUID || a.Patterns.IsNumericID {
		score += pkScoreIDShaped
	}
	if a.Frequency < pkPresenceFloor {
		score += pkScoreLowPresence
	}
	switch strings.ToLower(a.Name) {
	case "id":
		score += pkScoreLiteralID
	case "pk":
		score += pkScoreLiteralPK
	}
	return score
}

// selectForeignKeys scores every column and returns those reaching the FK
// floor, in column order.
func selectForeignKeys(analysis *models.TableAnalysis) []*models.FKCandidate {
	pkColumn := ""
	if analysis.PrimaryKey != nil {
		pkColumn = analysis.PrimaryKey.Column
	}

	var candidates []*models.FKCandidate
	for _, name := range analysis.ColumnOrder {
		a := analysis.Columns[name]
		score := scoreForeignKey(a, name == pkColumn)
		if score < fkScoreFloor {
			continue
		}
		candidates = append(candidates, &models.FKCandidate{
			Column:       name,
			Score:        score,
			Confidence:   min(float64(score)/fkConfidenceDivisor, 1),
			GuessedTable: guessReferencedTable(name),
		})
	}
	return candidates
}

func scoreForeignKey(a *models.ColumnAnalysis, isPK bool) int {
	score := 0
	if a.Patterns.IsForeignKey {
		score += fkScoreNaming
		if guessReferencedTable(a.Name) != "" {
			score += fkScoreGuessedTable
		}
	}
	if (a.Patterns.IsUUID || a.Patterns.IsNumericID) && !isPK {
		score += fkScoreIDShaped
	}
	if hasRepeatedReferences(a) {
		score += fkScoreRepeatedRefs
	}
	return score
}

// hasRepeatedReferences reports the high-but-not-unique cardinality shape of
// a repeated foreign reference: duplicates exist, yet distinct values make
// up a meaningful fraction of the observations.
func hasRepeatedReferences(a *models.ColumnAnalysis) bool {
	if a.NonNullCount == 0 || a.Cardinality >= a.NonNullCount {
		return false
	}
	return float64(a.Cardinality) >= fkRepeatedRefsMinRatio*float64(a.NonNullCount)
}

func (s *relationshipService) AnalyzeAllTables(ctx context.Context) (*models.AnalysisReport, error) {
	names, err := s.records.ListTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	sort.Strings(names)

	report := &models.AnalysisReport{
		Tables: make(map[string]*models.TableAnalysis, len(names)),
	}
	report.Statistics.TotalTables = len(names)

	entries := make(map[string]*tableEntry, len(names))
	var withData []string
	for _, name := range names {
		entry, err := s.tableEntry(ctx, name)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		entries[name] = entry
		withData = append(withData, name)
		report.Tables[name] = entry.analysis
	}
	report.Statistics.TablesWithData = len(withData)

	threshold := s.ConfidenceThreshold()
	best := make(map[string]*models.Relationship)
	for _, fromTable := range withData {
		from := entries[fromTable]
		for _, candidate := range from.analysis.ForeignKeys {
			for _, toTable := range withData {
				if toTable == fromTable {
					continue
				}
				rel := s.evaluateRelationship(fromTable, candidate, from, toTable, entries[toTable], threshold)
				if rel == nil {
					continue
				}
				key := rel.PairKey()
				if prior, ok := best[key]; !ok || rel.Confidence > prior.Confidence {
					best[key] = rel
				}
			}
		}
	}

	report.Relationships = make([]*models.Relationship, 0, len(best))
	for _, rel := range best {
		report.Relationships = append(report.Relationships, rel)
	}
	sortRelationships(report.Relationships)

	report.Statistics.RelationshipsFound = len(report.Relationships)
	for _, rel := range report.Relationships {
		report.Statistics.ConfidenceDistribution.Add(rel.Confidence)
	}

	s.logger.Info("Completed relationship analysis",
		zap.Int("tables", report.Statistics.TotalTables),
		zap.Int("tables_with_data", report.Statistics.TablesWithData),
		zap.Int("relationships", report.Statistics.RelationshipsFound))

	return report, nil
}

// sortRelationships orders descending by confidence with a lexicographic
// endpoint tie-break so equal-confidence output is stable.
func sortRelationships(rels []*models.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Confidence != rels[j].Confidence {
			return rels[i].Confidence > rels[j].Confidence
		}
		return rels[i].PairKey() < rels[j].PairKey()
	})
}

// evaluateRelationship scores one (source column, target table) pairing and
// returns the relationship when it clears the retention threshold, nil
// otherwise.
func (s *relationshipService) evaluateRelationship(
	fromTable string, candidate *models.FKCandidate, from *tableEntry,
	toTable string, to *tableEntry, threshold float64,
) *models.Relationship {
	confidence := candidate.Confidence
	guessMatched := tableNameMatches(candidate.GuessedTable, toTable)
	if guessMatched {
		confidence += relWeightGuessedTable
	}

	// Without a concrete target column there is nothing to reference.
	toColumn, matchedOnPK := targetMatchColumn(to.analysis)
	if toColumn == "" {
		return nil
	}
	if matchedOnPK {
		confidence += relWeightPKMatch
	} else {
		confidence += relWeightWeakIDMatch
	}

	overlap := valueOverlap(from.valueSets[candidate.Column], to.valueSets[toColumn])
	confidence += overlap * relWeightOverlap

	confidence = clamp01(confidence)
	if confidence < threshold {
		return nil
	}

	relType := models.RelationshipManyToOne
	if candidate.Score > oneToManyMinRawScore && confidence > oneToManyMinConfidence {
		relType = models.RelationshipOneToMany
	}

	return &models.Relationship{
		ID:         uuid.New(),
		FromTable:  fromTable,
		FromColumn: candidate.Column,
		ToTable:    toTable,
		ToColumn:   toColumn,
		Type:       relType,
		Confidence: confidence,
		DetectedAt: time.Now().UTC(),
		Metadata: models.RelationshipMetadata{
			CandidateScore:      candidate.Score,
			GuessedTable:        candidate.GuessedTable,
			ValueOverlap:        overlap,
			MatchedOnPrimaryKey: matchedOnPK,
		},
	}
}

// tableNameMatches reports whether a guessed table name points at the target
// table: substring match in either direction, also tried against the
// singular and plural forms so "user" matches "users" and "category"
// matches "categories". The inflected forms intentionally widen the plain
// substring rule; "category_id" against a "categories" table matches on no
// substring in either direction.
func tableNameMatches(guessed, table string) bool {
	if guessed == "" {
		return false
	}
	guessed = strings.ToLower(guessed)
	table = strings.ToLower(table)

	for _, g := range []string{guessed, inflection.Plural(guessed), inflection.Singular(guessed)} {
		if strings.Contains(table, g) || strings.Contains(g, table) {
			return true
		}
	}
	return false
}

// targetMatchColumn selects the column a foreign key would reference on the
// target table: the PK candidate when one exists, else the first id-named
// column as a weak fallback.
func targetMatchColumn(analysis *models.TableAnalysis) (column string, matchedOnPK bool) {
	if analysis.PrimaryKey != nil {
		return analysis.PrimaryKey.Column, true
	}
	for _, name := range analysis.ColumnOrder {
		if isIDName(name) {
			return name, false
		}
	}
	return "", false
}

// valueOverlap computes |intersection| / min(|a|, |b|), 0 when either set is
// empty.
func valueOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for v := range small {
		if _, ok := large[v]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func (s *relationshipService) GenerateERD(ctx context.Context) (*models.ERD, error) {
	report, err := s.AnalyzeAllTables(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(report.Tables))
	for name := range report.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	erd := &models.ERD{
		Nodes: make([]models.ERDNode, 0, len(names)),
		Edges: make([]models.ERDEdge, 0, len(report.Relationships)),
	}

	for _, name := range names {
		analysis := report.Tables[name]
		node := models.ERDNode{
			ID:          name,
			Label:       name,
			RecordCount: analysis.RecordCount,
			Columns:     make([]models.ERDColumn, 0, len(analysis.ColumnOrder)),
		}

		pkColumn := ""
		if analysis.PrimaryKey != nil {
			pkColumn = analysis.PrimaryKey.Column
		}
		fkColumns := make(map[string]struct{}, len(analysis.ForeignKeys))
		for _, fk := range analysis.ForeignKeys {
			fkColumns[fk.Column] = struct{}{}
		}

		for _, column := range analysis.ColumnOrder {
			_, isFK := fkColumns[column]
			node.Columns = append(node.Columns, models.ERDColumn{
				Name:         column,
				Type:         analysis.Columns[column].Type,
				IsPrimaryKey: column == pkColumn,
				IsForeignKey: isFK,
			})
		}
		erd.Nodes = append(erd.Nodes, node)
	}

	for i, rel := range report.Relationships {
		erd.Edges = append(erd.Edges, models.ERDEdge{
			ID:         fmt.Sprintf("edge-%d", i+1),
			From:       rel.FromTable,
			To:         rel.ToTable,
			FromColumn: rel.FromColumn,
			ToColumn:   rel.ToColumn,
			Label:      fmt.Sprintf("%s → %s", rel.FromColumn, rel.ToColumn),
			Type:       rel.Type,
			Confidence: rel.Confidence,
		})
	}

	erd.Metadata = models.ERDMetadata{
		GeneratedAt:       time.Now().UTC(),
		TableCount:        len(erd.Nodes),
		RelationshipCount: len(erd.Edges),
	}
	return erd, nil
}
