// Package engine implements the allocation/capital-call status
// reconciliation engine: one canonical status formula, single-query
// aggregation, transactional recompute of derived fields, an idempotent
// repair sweep, and duplicate-commitment merging.
package engine

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Config carries the engine's business parameters. It is passed explicitly to
// New; the engine keeps no process-wide mutable state.
type Config struct {
	// SweepBatchSize is how many allocations a repair sweep processes per
	// transaction. Small batches keep the sweep from starving request traffic.
	SweepBatchSize int
	// MaxCallPercent bounds percentage-denominated capital calls.
	MaxCallPercent decimal.Decimal
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SweepBatchSize: 200,
		MaxCallPercent: decimal.NewFromInt(100),
	}
}

// Engine is the single authoritative implementation of the reconciliation
// formula. All callers, including maintenance tooling, must route through it.
type Engine struct {
	db  *gorm.DB
	cfg Config
}

// New creates an engine bound to the given database handle.
func New(db *gorm.DB, cfg Config) *Engine {
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = DefaultConfig().SweepBatchSize
	}
	if !cfg.MaxCallPercent.IsPositive() {
		cfg.MaxCallPercent = DefaultConfig().MaxCallPercent
	}
	return &Engine{db: db, cfg: cfg}
}

// DB exposes the underlying handle for read-only callers (handlers, schedule).
func (e *Engine) DB() *gorm.DB {
	return e.db
}

// forUpdate adds a row-level lock where the dialect supports it. The sqlite
// driver used in tests has no FOR UPDATE; its single-writer model makes the
// lock unnecessary there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
