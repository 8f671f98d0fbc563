package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/hkexingest/storage"
)

func TestEnsureEdgeIdempotent(t *testing.T) {
	_, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { edgeRepo.Close(); backend.Close() }()

	ctx := context.Background()
	edge := &storage.Edge{
		Relation:  storage.RelationHasFiling,
		From:      "5_HK",
		To:        "aabbccdd00112233",
		CreatedAt: time.Now().UTC(),
		Source:    "HKEx",
	}

	created, err := edgeRepo.Ensure(ctx, edge)
	if err != nil {
		t.Fatalf("Failed to ensure edge: %v", err)
	}
	if !created {
		t.Fatal("Expected first Ensure to create the edge")
	}

	created, err = edgeRepo.Ensure(ctx, edge)
	if err != nil {
		t.Fatalf("Failed to re-ensure edge: %v", err)
	}
	if created {
		t.Fatal("Expected second Ensure to be a no-op")
	}

	count, err := edgeRepo.Count(ctx, storage.RelationHasFiling)
	if err != nil {
		t.Fatalf("Failed to count edges: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 edge, got %d", count)
	}
}

func TestCountByRelation(t *testing.T) {
	_, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { edgeRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	edges := []*storage.Edge{
		{Relation: storage.RelationHasFiling, From: "5_HK", To: "f1", CreatedAt: now},
		{Relation: storage.RelationHasFiling, From: "700_HK", To: "f2", CreatedAt: now},
		{Relation: storage.RelationReferencesFiling, From: "f1", To: "941_HK", CreatedAt: now},
	}
	for _, e := range edges {
		if _, err := edgeRepo.Ensure(ctx, e); err != nil {
			t.Fatalf("Failed to ensure edge: %v", err)
		}
	}

	hasFiling, err := edgeRepo.Count(ctx, storage.RelationHasFiling)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if hasFiling != 2 {
		t.Fatalf("Expected 2 has_filing edges, got %d", hasFiling)
	}

	references, err := edgeRepo.Count(ctx, storage.RelationReferencesFiling)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if references != 1 {
		t.Fatalf("Expected 1 references_filing edge, got %d", references)
	}
}

func TestCompanyDirectory(t *testing.T) {
	_, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer backend.Close()

	dir, err := NewCompanyDirectory(backend, "company")
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"5_HK", "700_HK", "941_HK"} {
		if err := dir.PutCompany(ctx, id, []byte(`{}`)); err != nil {
			t.Fatalf("Failed to put company: %v", err)
		}
	}

	ids, err := dir.CompanyIDs(ctx)
	if err != nil {
		t.Fatalf("Failed to list companies: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("Expected 3 companies, got %d", len(ids))
	}
	if _, ok := ids["700_HK"]; !ok {
		t.Fatal("Expected 700_HK in directory")
	}
}

func TestCompanyDirectoryRequiresTable(t *testing.T) {
	_, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer backend.Close()

	if _, err := NewCompanyDirectory(backend, ""); err == nil {
		t.Fatal("Expected error for empty table name")
	}
}
