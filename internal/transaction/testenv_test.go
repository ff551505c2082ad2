package transaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herondb/herondb/internal/buffer"
	"github.com/herondb/herondb/internal/file"
	dblog "github.com/herondb/herondb/internal/log"
)

// testEnv bundles the shared managers a transaction needs.
type testEnv struct {
	fm     *file.Manager
	lm     *dblog.Manager
	bm     *buffer.Manager
	lt     *LockTable
	txNums *TxNumberSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, t.TempDir(), 10)
}

// newTestEnvAt opens the managers over an existing directory, so tests
// can simulate a crash and restart by building a second environment on
// the same files.
func newTestEnvAt(t *testing.T, dir string, numBuffs int) *testEnv {
	t.Helper()
	fm, err := file.NewManager(dir, 400)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })

	lm, err := dblog.NewManager(fm, "test.log")
	require.NoError(t, err)

	bm, err := buffer.NewManager(fm, lm, numBuffs, buffer.DefaultMaxWait)
	require.NoError(t, err)

	return &testEnv{
		fm:     fm,
		lm:     lm,
		bm:     bm,
		lt:     NewLockTable(DefaultMaxWait),
		txNums: NewTxNumberSource(),
	}
}

func (e *testEnv) newTx(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(e.fm, e.lm, e.bm, e.lt, e.txNums)
	require.NoError(t, err)
	return tx
}
