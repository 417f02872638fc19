package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// Files are the base names of the datasets in the input directory. Each is
// read from <name>.xlsx or <name>.csv; the weekly ones may carry a week
// suffix (<name>_15).
type Files struct {
	ABC             string `mapstructure:"abc"`
	Costs           string `mapstructure:"costs"`
	SalesHistory    string `mapstructure:"sales_history"`
	Stock           string `mapstructure:"stock"`
	WeeklySales     string `mapstructure:"weekly_sales"`
	WeeklyPurchases string `mapstructure:"weekly_purchases"`
}

// DefaultFiles are the names used by the store exports.
func DefaultFiles() Files {
	return Files{
		ABC:             "clasificacion_abc",
		Costs:           "costes",
		SalesHistory:    "ventas_historico",
		Stock:           "stock_actual",
		WeeklySales:     "ventas_semana",
		WeeklyPurchases: "compras_semana",
	}
}

// Bases lists every dataset name, in a fixed order.
func (f Files) Bases() []string {
	return []string{f.ABC, f.Costs, f.SalesHistory, f.Stock, f.WeeklySales, f.WeeklyPurchases}
}

// CorrectionData is what the store really had and did in the closing week.
// Each dataset is loaded on its own; a map is nil when its file is missing
// or unreadable.
type CorrectionData struct {
	Stock     map[string]float64
	Sales     map[string]float64
	Purchases map[string]float64
}

// Complete reports whether every dataset needed to compare the forecast
// with reality was loaded.
func (c *CorrectionData) Complete() bool {
	return c != nil && c.Stock != nil && c.Sales != nil && c.Purchases != nil
}

// Inputs is everything a weekly run reads.
type Inputs struct {
	Articles []domain.Article
	History  []SalesRecord
	// Correction is nil when none of the weekly files could be read.
	Correction *CorrectionData
	Advisories []string
}

// Source provides the inputs of a week.
type Source interface {
	Load(ctx context.Context, week int) (*Inputs, error)
}

// DirSource reads the inputs from files in a directory.
type DirSource struct {
	dir             string
	files           Files
	livePetFamilies []string
}

// NewDirSource creates a source over dir. Empty names fall back to DefaultFiles.
func NewDirSource(dir string, files Files, livePetFamilies []string) *DirSource {
	def := DefaultFiles()
	if files.ABC == "" {
		files.ABC = def.ABC
	}
	if files.Costs == "" {
		files.Costs = def.Costs
	}
	if files.SalesHistory == "" {
		files.SalesHistory = def.SalesHistory
	}
	if files.Stock == "" {
		files.Stock = def.Stock
	}
	if files.WeeklySales == "" {
		files.WeeklySales = def.WeeklySales
	}
	if files.WeeklyPurchases == "" {
		files.WeeklyPurchases = def.WeeklyPurchases
	}
	return &DirSource{dir: dir, files: files, livePetFamilies: livePetFamilies}
}

// Dir is the input directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// Files are the dataset names in use.
func (s *DirSource) Files() Files {
	return s.files
}

// Load reads the ABC classification and costs, which are required, and the
// sales history and weekly correction files, which are not.
func (s *DirSource) Load(ctx context.Context, week int) (*Inputs, error) {
	in := &Inputs{}

	abcPath, err := findFile(s.dir, s.files.ABC)
	if err != nil {
		return nil, err
	}
	abcRows, rejected, err := ReadABC(abcPath, s.livePetFamilies)
	if err != nil {
		return nil, err
	}
	for _, msg := range rejected {
		log.Warn().Str("file", abcPath).Msg(msg)
	}
	if len(rejected) > 0 {
		in.Advisories = append(in.Advisories, fmt.Sprintf("%d ABC rows rejected, first: %s", len(rejected), rejected[0]))
	}

	costPath, err := findFile(s.dir, s.files.Costs)
	if err != nil {
		return nil, err
	}
	costs, err := ReadCosts(costPath)
	if err != nil {
		return nil, err
	}
	in.Articles = mergeArticles(abcRows, costs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path, err := findFile(s.dir, s.files.SalesHistory); err != nil {
		in.Advisories = append(in.Advisories, "no sales history, section targets are not split by article")
	} else if in.History, err = ReadSalesHistory(path, s.livePetFamilies); err != nil {
		return nil, err
	}

	correction, problems := s.loadCorrection(week)
	for _, p := range problems {
		log.Warn().Err(p).Int("week", week).Msg("correction input unavailable")
		in.Advisories = append(in.Advisories, fmt.Sprintf("correction skipped: %v", p))
	}
	in.Correction = correction

	log.Info().
		Str("dir", s.dir).
		Int("week", week).
		Int("articles", len(in.Articles)).
		Int("history_rows", len(in.History)).
		Bool("correction", in.Correction.Complete()).
		Msg("inputs loaded")
	return in, nil
}

// loadCorrection reads the stock, weekly sales and weekly purchases files
// independently. A dataset that cannot be read is reported in problems and
// left nil; the result is nil only when all three are missing.
func (s *DirSource) loadCorrection(week int) (*CorrectionData, []error) {
	data := &CorrectionData{}
	sets := []struct {
		dataset string
		base    string
		target  *map[string]float64
	}{
		{"stock", s.files.Stock, &data.Stock},
		{"weekly sales", s.files.WeeklySales, &data.Sales},
		{"weekly purchases", s.files.WeeklyPurchases, &data.Purchases},
	}

	var problems []error
	for _, set := range sets {
		path, err := s.weeklyFile(set.base, week)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		values, err := ReadQuantities(set.dataset, path)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		*set.target = values
	}

	if len(problems) == len(sets) {
		return nil, problems
	}
	return data, problems
}

// weeklyFile prefers <base>_<week> over <base>.
func (s *DirSource) weeklyFile(base string, week int) (string, error) {
	for _, name := range []string{
		fmt.Sprintf("%s_%d", base, week),
		fmt.Sprintf("%s_%02d", base, week),
	} {
		path, err := findFile(s.dir, name)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return findFile(s.dir, base)
}

// mergeArticles joins the classification with prices. Articles with no cost
// row keep a zero price and are rejected later by the forecast.
func mergeArticles(abcRows []ABCRow, costs []CostRow) []domain.Article {
	byCode := make(map[string]CostRow, len(costs))
	for _, c := range costs {
		byCode[c.Code] = c
	}

	seen := make(map[string]bool, len(abcRows))
	out := make([]domain.Article, 0, len(abcRows))
	for _, r := range abcRows {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true

		cost := byCode[r.Code]
		out = append(out, domain.Article{
			Code:      r.Code,
			Name:      r.Name,
			Section:   r.Section,
			Category:  r.Category,
			UnitCost:  cost.UnitCost,
			UnitPrice: cost.UnitPrice,
			Supplier:  cost.Supplier,
			Action:    r.Action,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
