package pipeline

import (
	"reflect"
	"testing"
)

func TestTopoSortEnterpriseERPMatchesCanonicalOrderMinusSkip(t *testing.T) {
	profile := EnterpriseERP()
	order, err := TopoSort(profile.Stages)
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	want := []Stage{
		StageValidation, StageDuplicateDetect, StageBusinessRules,
		StagePatternMatching, StageEnrichment, StageFinalization,
	}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestTopoSortAllStagesPresentForFinancialData(t *testing.T) {
	profile := FinancialData()
	order, err := TopoSort(profile.Stages)
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	if len(order) != 7 {
		t.Fatalf("order length = %d, want 7 (no skip in financial-data)", len(order))
	}
	positions := make(map[Stage]int, len(order))
	for i, s := range order {
		positions[s] = i
	}
	for s, cfg := range profile.Stages {
		for _, dep := range cfg.DependsOn {
			if positions[dep] >= positions[s] {
				t.Errorf("stage %s ran before its dependency %s", s, dep)
			}
		}
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	stages := map[Stage]StageConfig{
		StageValidation: {Mode: ModeRequired, DependsOn: []Stage{StageBusinessRules}},
		StageBusinessRules: {Mode: ModeRequired, DependsOn: []Stage{StageValidation}},
	}
	if _, err := TopoSort(stages); err == nil {
		t.Error("expected a cycle error")
	}
}

func TestTopoSortEmptyDAG(t *testing.T) {
	order, err := TopoSort(map[Stage]StageConfig{})
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
}

func TestTopoSortRejectsUnconfiguredDependency(t *testing.T) {
	stages := map[Stage]StageConfig{
		StageValidation: {Mode: ModeRequired, DependsOn: []Stage{StageEnrichment}},
	}
	if _, err := TopoSort(stages); err == nil {
		t.Error("expected an error for a dependency on an unconfigured stage")
	}
}

func TestAllFourProfilesValidate(t *testing.T) {
	for _, p := range []Profile{EnterpriseERP(), SmallBusiness(), CustomerFacing(), FinancialData()} {
		if err := p.Validate(); err != nil {
			t.Errorf("profile %s: %v", p.Tag, err)
		}
	}
}
