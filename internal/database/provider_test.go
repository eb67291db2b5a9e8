package database_test

import (
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
)

func TestRegisterRepository(t *testing.T) {
	t.Cleanup(func() { database.RegisterRepository(nil) })

	database.RegisterRepository(nil)
	if database.IsInitialized() || database.GetRepository() != nil {
		t.Fatal("expected no repository before registration")
	}

	repo := mock.NewMockRepository()
	database.RegisterRepository(func() database.Repository { return repo })

	if !database.IsInitialized() {
		t.Error("expected IsInitialized after registration")
	}
	if database.GetRepository() != repo {
		t.Error("expected the registered repository")
	}
}
