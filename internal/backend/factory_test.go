package backend

import (
	"context"
	"path/filepath"
	"testing"

	"budget/internal/config"
	"budget/internal/core"
	sheetsmem "budget/internal/sheets/memory"
)

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "b.db")}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer res.Cleanup()
			if res.Events != nil {
				t.Error("events should be nil without AMQP")
			}
			cat, _ := core.NewCategory("c1", "Food", "", "", 0)
			if err := res.Store.AddCategory(ctx, cat); err != nil {
				t.Fatalf("store unusable: %v", err)
			}
		})
	}
}

func TestCreateExporter_MemoryWithoutSpreadsheet(t *testing.T) {
	exp, err := NewFactory(nil).CreateExporter(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := exp.(*sheetsmem.Store); !ok {
		t.Fatalf("exporter = %T, want memory", exp)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	got, err := FromAppConfig(&config.Config{
		DataBackend:         "sqlite",
		SQLiteDBPath:        "/tmp/x.db",
		AMQPURL:             "amqp://h",
		GoogleSpreadsheetID: "sid",
		GoogleSheetName:     "Ledger",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "/tmp/x.db" || got.AMQPURL != "amqp://h" || got.GoogleSheetName != "Ledger" {
		t.Errorf("got %+v", got)
	}
}
