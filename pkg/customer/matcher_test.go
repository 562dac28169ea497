package customer

import (
	"testing"
	"time"
)

type fakeStore struct {
	byID map[string]*Identity
}

func newFakeStore() *fakeStore { return &fakeStore{byID: map[string]*Identity{}} }

func (f *fakeStore) LoadIdentity(tenantID, id string) (*Identity, bool, error) {
	i, ok := f.byID[id]
	return i, ok, nil
}

func (f *fakeStore) SaveIdentity(identity *Identity) error {
	f.byID[identity.ID] = identity
	return nil
}

func (f *fakeStore) AllIdentities(tenantID string) ([]*Identity, error) {
	out := []*Identity{}
	for _, i := range f.byID {
		if i.TenantID == tenantID {
			out = append(out, i)
		}
	}
	return out, nil
}

func fixedNow() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

func TestMatchCreatesNewIdentityWhenNoCandidates(t *testing.T) {
	store := newFakeStore()
	engine, err := NewEngine(store, fixedNow)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	result, err := engine.Match("tenant-1", Payload{Name: "Acme Traders Ltd", Phone: "08031234567"}, StrategyBalanced)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Merged {
		t.Fatalf("expected a fresh identity, got merge")
	}
	if len(store.byID) != 1 {
		t.Fatalf("expected exactly one persisted identity, got %d", len(store.byID))
	}
}

func TestMatchMergesAcrossConnectorsOnSharedPhone(t *testing.T) {
	store := newFakeStore()
	engine, err := NewEngine(store, fixedNow)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	first, err := engine.Match("tenant-1", Payload{
		Name: "ABC Manufacturing Ltd", Phone: "+2348031234567", SourceSystem: "pos", SourceLocalID: "POS-1",
	}, StrategyBalanced)
	if err != nil {
		t.Fatalf("first Match: %v", err)
	}

	second, err := engine.Match("tenant-1", Payload{
		Name: "Abc Manufacturing Limited", Phone: "+2348031234567", SourceSystem: "crm", SourceLocalID: "CRM-1",
	}, StrategyBalanced)
	if err != nil {
		t.Fatalf("second Match: %v", err)
	}

	if !second.Merged {
		t.Fatalf("expected second transaction to merge into the first identity")
	}
	if second.IdentityID != first.IdentityID {
		t.Fatalf("expected same universal id, got %q vs %q", first.IdentityID, second.IdentityID)
	}

	survivor := store.byID[first.IdentityID]
	if len(survivor.NameSet()) < 2 {
		t.Fatalf("expected >= 2 normalized names on the merged identity, got %v", survivor.NameSet())
	}
	if len(survivor.Sources) < 2 {
		t.Fatalf("expected >= 2 source-system entries, got %v", survivor.Sources)
	}
}

func TestMatchNameOnlyPartialOverlapDoesNotMerge(t *testing.T) {
	store := newFakeStore()
	engine, err := NewEngine(store, fixedNow)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	_, err = engine.Match("tenant-1", Payload{Name: "Global Ventures Limited", Phone: "08011112222"}, StrategyBalanced)
	if err != nil {
		t.Fatalf("seed Match: %v", err)
	}

	// Name-only partial overlap, no shared phone/email/business id: should
	// land below the high threshold and not auto-merge.
	result, err := engine.Match("tenant-1", Payload{Name: "Global Ventures"}, StrategyBalanced)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Merged {
		t.Fatalf("did not expect an auto-merge on name-only partial overlap, got score %v", result.Score)
	}
}

func TestMergeManualAbsorbsCandidateEmail(t *testing.T) {
	store := newFakeStore()
	engine, err := NewEngine(store, fixedNow)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	a, _ := engine.Match("tenant-1", Payload{Name: "First Co", Email: "a@example.com"}, StrategyBalanced)
	b, _ := engine.Match("tenant-1", Payload{Name: "Second Co", Email: "b@example.com"}, StrategyBalanced)

	if err := engine.MergeManual("tenant-1", a.IdentityID, b.IdentityID); err != nil {
		t.Fatalf("MergeManual: %v", err)
	}

	survivor := store.byID[a.IdentityID]
	if _, ok := survivor.Emails["b@example.com"]; !ok {
		t.Fatalf("expected survivor to absorb candidate's email")
	}
}
