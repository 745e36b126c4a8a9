package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hoangtran-dev/shopora-backend/pkg/migrate"
)

func TestInitMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE coupons",
		"used_count integer NOT NULL DEFAULT 0",
		"is_delete boolean NOT NULL DEFAULT false",
		"CREATE UNIQUE INDEX idx_coupons_code ON coupons (code)",
		"CREATE UNIQUE INDEX idx_cart_items_cart_product_color ON cart_items (cart_id, product_id, color)",
		"CREATE UNIQUE INDEX idx_carts_user_active ON carts (user_id) WHERE status = 'active'",
		"final_total_cents bigint NOT NULL",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
