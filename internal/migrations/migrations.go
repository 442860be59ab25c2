package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// Up aplica as migrações pendentes. Com o schema em dia, não faz nada.
//
// A instância de migrate não é fechada aqui: fechar o driver fecharia também o *sql.DB,
// que continua sendo usado pela aplicação.
func Up(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migrations: criar driver sqlite3: %w", err)
	}

	source, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return fmt.Errorf("migrations: abrir migrações embutidas: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrations: iniciar migrate: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("Banco de dados já está na versão mais recente")
			return nil
		}
		return fmt.Errorf("migrations: aplicar: %w", err)
	}

	if v, dirty, err := m.Version(); err == nil {
		slog.Info("Migrações aplicadas", "version", v, "dirty", dirty)
	}
	return nil
}
