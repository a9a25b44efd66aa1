package sqlmystery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/sqlmystery/internal/config"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/testhelper"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	src := testhelper.WriteFixtures(t)
	cfg := config.Default()
	cfg.Sources = config.Sources{Crimes: src[0].Path, Criminals: src[1].Path, Victim: src[2].Path}
	cfg.Store.DSN = filepath.Join(t.TempDir(), "example.db")
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewMaterializesAllTables(t *testing.T) {
	a := newApp(t, testConfig(t))
	tables, err := a.Schema(context.Background())
	require.NoError(t, err)

	rows := map[string]int64{}
	for _, ti := range tables {
		rows[ti.Name] = ti.Rows
	}
	assert.Equal(t, map[string]int64{
		TableCrimes:    testhelper.CrimesRows,
		TableCriminals: testhelper.CriminalsRows,
		TableVictim:    testhelper.VictimRows,
	}, rows)
	assert.Len(t, a.Sources(), 3)
}

func TestLessonQueriesSolveTheCase(t *testing.T) {
	a := newApp(t, testConfig(t))
	ctx := context.Background()

	for _, s := range a.Lesson().Steps {
		out := a.Run(ctx, s.Query)
		assert.NotEqual(t, query.Failed, out.Kind, "step %s: %s", s.ID, out.Reason)
	}

	q6, ok := a.Lesson().Step("q6")
	require.True(t, ok)
	out := a.Run(ctx, q6.Query)
	require.Equal(t, query.Table, out.Kind, out.Reason)
	assert.Equal(t, [][]any{{int64(501), int64(18), "F", "KIDNAPPING", "Southwest"}}, out.Rows)

	// the join on the scene clues leaves one Southwest suspect
	q4, _ := a.Lesson().Step("q4")
	out = a.Run(ctx, q4.Query)
	require.Equal(t, query.Table, out.Kind, out.Reason)
	var area string
	for _, r := range out.Rows {
		if r[1] == int64(501) {
			area = r[0].(string)
		}
	}
	assert.True(t, a.Check(area))
}

func TestCheckAndSolution(t *testing.T) {
	a := newApp(t, testConfig(t))
	assert.True(t, a.Check("Southwest"))
	assert.False(t, a.Check("southwest"))
	assert.False(t, a.Check(" Southwest"))
	assert.Equal(t, "INCIDENT_AREA", a.Solution().Field)
	assert.Equal(t, "Southwest", a.Solution().Value)
}

func TestOutcomeKinds(t *testing.T) {
	a := newApp(t, testConfig(t))
	ctx := context.Background()

	out := a.Run(ctx, "SELECT * FROM crimes;")
	assert.Equal(t, query.Table, out.Kind)
	assert.Equal(t, testhelper.CrimesRows, out.Count())

	out = a.Run(ctx, "SELECT * FROM crimes WHERE EXACT_LOCATION = 'NO_SUCH_PLACE';")
	assert.Equal(t, query.Empty, out.Kind)

	out = a.Run(ctx, "SELEKT * FROM crimes;")
	assert.Equal(t, query.Failed, out.Kind)
	assert.NotEmpty(t, out.Reason)
}

func TestRefreshPicksUpChangedFile(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	extra := testhelper.VictimCSV + "33,M,Central\n"
	require.NoError(t, os.WriteFile(cfg.Sources.Victim, []byte(extra), 0o644))

	// without reload-on-run the table is unchanged until a refresh
	assert.Equal(t, testhelper.VictimRows, a.Run(ctx, "SELECT * FROM victim").Count())
	require.NoError(t, a.Refresh(ctx))
	assert.Equal(t, testhelper.VictimRows+1, a.Run(ctx, "SELECT * FROM victim").Count())
}

func TestRefreshFailureKeepsTables(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	require.NoError(t, os.Remove(cfg.Sources.Criminals))
	err := a.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, testhelper.CriminalsRows, a.Run(ctx, "SELECT * FROM criminals").Count())
}

func TestReloadOnRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReloadOnRun = true
	a := newApp(t, cfg)
	ctx := context.Background()

	extra := testhelper.CrimesCSV + "1007,Central,PARKING LOT,ARSON,LIGHTER\n"
	require.NoError(t, os.WriteFile(cfg.Sources.Crimes, []byte(extra), 0o644))
	assert.Equal(t, testhelper.CrimesRows+1, a.Run(ctx, "SELECT * FROM crimes").Count())

	require.NoError(t, os.Remove(cfg.Sources.Crimes))
	out := a.Run(ctx, "SELECT * FROM crimes")
	assert.Equal(t, query.Failed, out.Kind)
	assert.Contains(t, out.Reason, "reload datasets")
}

func TestLearnerTransactionDoesNotBlockReload(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReloadOnRun = true
	a := newApp(t, cfg)
	ctx := context.Background()

	out := a.Run(ctx, "BEGIN")
	assert.Equal(t, query.Failed, out.Kind)

	out = a.Run(ctx, "SELECT * FROM crimes")
	require.Equal(t, query.Table, out.Kind, out.Reason)
	assert.Equal(t, testhelper.CrimesRows, out.Count())
	require.NoError(t, a.Refresh(ctx))

	// a failed text is rolled back as a whole
	a.Run(ctx, "COMMIT; BEGIN; DELETE FROM victim; SELEKT 1;")
	require.NoError(t, a.Refresh(ctx))
	assert.Equal(t, testhelper.VictimRows, a.Run(ctx, "SELECT * FROM victim").Count())
}

func TestMaxRows(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRows = 2
	a := newApp(t, cfg)
	out := a.Run(context.Background(), "SELECT * FROM crimes")
	assert.Equal(t, 2, out.Count())
	assert.True(t, out.Truncated)
}

func TestNewFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "oracle"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg = testConfig(t)
	cfg.Sources.Victim = filepath.Join(t.TempDir(), "missing.csv")
	_, err = New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "victim")

	cfg = testConfig(t)
	cfg.LessonFile = filepath.Join(t.TempDir(), "missing.yml")
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestShippedCaseFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Store.DSN = filepath.Join(t.TempDir(), "example.db")
	a := newApp(t, cfg)

	q6, _ := a.Lesson().Step("q6")
	out := a.Run(context.Background(), q6.Query)
	require.Equal(t, query.Table, out.Kind, out.Reason)
	assert.Equal(t, [][]any{{int64(5011), int64(18), "F", "KIDNAPPING", "Southwest"}}, out.Rows)
}
