package db

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/herondb/herondb/internal/buffer"
	"github.com/herondb/herondb/internal/config"
	"github.com/herondb/herondb/internal/file"
	dblog "github.com/herondb/herondb/internal/log"
	"github.com/herondb/herondb/internal/transaction"
)

// DB is the engine's composition root: it owns the file, log, and
// buffer managers, the shared lock table, and the transaction counter.
// Opening a database runs crash recovery before handing out any
// transactions.
type DB struct {
	cfg           config.Config
	fileManager   *file.Manager
	logManager    *dblog.Manager
	bufferManager *buffer.Manager
	lockTable     *transaction.LockTable
	txNums        *transaction.TxNumberSource
}

// Open opens (or creates) the database directory described by the
// configuration and recovers it to a consistent state.
func Open(cfg config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	fm, err := file.NewManager(cfg.DBDirectory, cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create file manager: %w", err)
	}

	lm, err := dblog.NewManager(fm, cfg.LogFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create log manager: %w", err)
	}

	bm, err := buffer.NewManager(fm, lm, cfg.BufferPoolSize, cfg.MaxWait())
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer manager: %w", err)
	}

	d := &DB{
		cfg:           cfg,
		fileManager:   fm,
		logManager:    lm,
		bufferManager: bm,
		lockTable:     transaction.NewLockTable(cfg.MaxWait()),
		txNums:        transaction.NewTxNumberSource(),
	}

	if fm.IsNew() {
		log.Info().Str("dir", cfg.DBDirectory).Msg("creating new database")
	} else {
		log.Info().Str("dir", cfg.DBDirectory).Msg("recovering existing database")
	}

	tx, err := d.NewTx()
	if err != nil {
		return nil, fmt.Errorf("failed to start recovery transaction: %w", err)
	}
	maxTxNum, err := tx.Recover()
	if err != nil {
		return nil, fmt.Errorf("failed to perform recovery: %w", err)
	}
	// Committing releases the locks the undo writes acquired
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish recovery transaction: %w", err)
	}
	d.txNums.Reseed(maxTxNum)

	return d, nil
}

// NewTx starts a new transaction against this database.
func (d *DB) NewTx() (*transaction.Transaction, error) {
	return transaction.NewTransaction(d.fileManager, d.logManager, d.bufferManager, d.lockTable, d.txNums)
}

// FileManager exposes the file manager to the layers above.
func (d *DB) FileManager() *file.Manager {
	return d.fileManager
}

// LogManager exposes the log manager to the layers above.
func (d *DB) LogManager() *dblog.Manager {
	return d.logManager
}

// BufferManager exposes the buffer manager to the layers above.
func (d *DB) BufferManager() *buffer.Manager {
	return d.bufferManager
}

// Close flushes the log and closes every open file.
func (d *DB) Close() error {
	if err := d.logManager.Close(); err != nil {
		return err
	}
	return d.fileManager.Close()
}
