package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/infrastructure/security"
	"github.com/gsblab/gsb-frais/pkg/database"
)

type env struct {
	dir        string
	configPath string
	dbPath     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "gsb.db"),
	}

	content := fmt.Sprintf(`
database:
  path: %q
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
  bcrypt_cost: 4
storage:
  justification_dir: %q
`, e.dbPath, filepath.Join(dir, "justificatifs"))
	require.NoError(t, os.WriteFile(e.configPath, []byte(content), 0644))
	return e
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) exec(t *testing.T, query string) {
	t.Helper()
	db, err := database.New(database.Config{Path: e.dbPath}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(query)
	require.NoError(t, err)
}

func TestNextMonth(t *testing.T) {
	out, err := run(t, "", "next-month", "202412")
	require.NoError(t, err)
	assert.Equal(t, "202501\n", out)

	_, err = run(t, "", "next-month", "202413")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hasher := security.NewBcryptHasher(4)

	out, err := run(t, "", "hash-password", "--cost", "4", "secret")
	require.NoError(t, err)
	assert.True(t, hasher.Verify(strings.TrimSpace(out), "secret"))

	out, err = run(t, "from-stdin\n", "hash-password", "--cost", "4")
	require.NoError(t, err)
	assert.True(t, hasher.Verify(strings.TrimSpace(out), "from-stdin"))

	_, err = run(t, "", "hash-password")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, "", "--config", e.configPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "2 migration(s) applied")

	out, err = run(t, "", "--config", e.configPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "0 migration(s) applied")
}

func TestSetPassword(t *testing.T) {
	e := newEnv(t)
	_, err := run(t, "", "--config", e.configPath, "migrate")
	require.NoError(t, err)
	e.exec(t, `INSERT INTO comptable (id, nom, prenom, login) VALUES ('c001', 'Compta', 'Alice', 'acompta')`)

	out, err := run(t, "", "--config", e.configPath, "set-password", "--role", "comptable", "--login", "acompta", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Password updated")

	_, err = run(t, "", "--config", e.configPath, "set-password", "--login", "nobody", "s3cret")
	assert.Error(t, err)
}

func TestCloseMonthAndExport(t *testing.T) {
	e := newEnv(t)
	_, err := run(t, "", "--config", e.configPath, "migrate")
	require.NoError(t, err)
	e.exec(t, `
		INSERT INTO visiteur (id, nom, prenom, login, idvehicule) VALUES ('a131', 'Villechalane', 'Louis', 'lvillachane', NULL);
		INSERT INTO fichefrais (idvisiteur, mois, nbjustificatifs, montantvalide, datemodif, idetat)
			VALUES ('a131', '202401', 0, 0, '2024-01-31', 'CR'), ('a131', '202403', 0, 0, '2024-03-01', 'CR');
	`)

	out, err := run(t, "", "--config", e.configPath, "close-month", "--before", "202403")
	require.NoError(t, err)
	assert.Contains(t, out, "1 report(s) closed before 202403")

	target := filepath.Join(e.dir, "fiche.xlsx")
	_, err = run(t, "", "--config", e.configPath, "export", "--visitor", "a131", "--month", "202401", "-o", target)
	require.NoError(t, err)

	f, err := excelize.OpenFile(target)
	require.NoError(t, err)
	defer f.Close()
	state, err := f.GetCellValue("Fiche", "B4")
	require.NoError(t, err)
	assert.Equal(t, "Saisie clôturée", state)

	missing := filepath.Join(e.dir, "missing.xlsx")
	_, err = run(t, "", "--config", e.configPath, "export", "--visitor", "a131", "--month", "202312", "-o", missing)
	assert.Error(t, err)
	assert.NoFileExists(t, missing)
}
