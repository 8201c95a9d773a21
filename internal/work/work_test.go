package work

import (
	"testing"

	"github.com/dynamocoin/go-dynminer/testutil"

	"go.uber.org/zap"
)

func mustSetJob(t *testing.T, s *Shared, jobID, prog string) {
	t.Helper()
	n, err := ParseNotify(testutil.NotifyParams(jobID, prog))
	if err != nil {
		t.Fatalf("ParseNotify: %v", err)
	}
	if err := s.SetJob(n, zap.NewNop()); err != nil {
		t.Fatalf("SetJob: %v", err)
	}
}

func TestShared_GenerationMonotonic(t *testing.T) {
	s := &Shared{}
	if s.Num() != 0 {
		t.Fatalf("fresh slot generation = %d, want 0", s.Num())
	}

	var last uint32
	for i := 0; i < 5; i++ {
		mustSetJob(t, s, "job", "SHA2")
		if s.Num() <= last {
			t.Fatalf("generation not monotonic: %d after %d", s.Num(), last)
		}
		last = s.Num()
	}
}

func TestShared_CloneCarriesObservedGeneration(t *testing.T) {
	s := &Shared{}
	mustSetJob(t, s, "a", "SHA2")
	mustSetJob(t, s, "b", "SHA2")

	observed := s.Num()
	w := s.Clone()
	if w.Num != observed {
		t.Errorf("clone generation = %d, want %d", w.Num, observed)
	}
	if w.JobID != "b" {
		t.Errorf("clone job id = %q, want %q", w.JobID, "b")
	}
}

func TestShared_SetDifficultyBeforeFirstJob(t *testing.T) {
	s := &Shared{}
	s.SetDifficulty(4)

	if s.Num() != 0 {
		t.Errorf("difficulty before first job bumped generation to %d", s.Num())
	}
	if got, want := s.Clone().ShareTarget, TargetForDifficulty(4); got != want {
		t.Errorf("share target = %#x, want %#x", got, want)
	}
}

func TestShared_SetDifficultyAfterJobBumps(t *testing.T) {
	s := &Shared{}
	mustSetJob(t, s, "a", "SHA2")
	before := s.Num()

	s.SetDifficulty(8)

	if s.Num() != before+1 {
		t.Errorf("generation = %d, want %d", s.Num(), before+1)
	}
	w := s.Clone()
	if w.Num != s.Num() {
		t.Errorf("record generation = %d, slot = %d", w.Num, s.Num())
	}
	if got, want := w.ShareTarget, TargetForDifficulty(8); got != want {
		t.Errorf("share target = %#x, want %#x", got, want)
	}
}

func TestShared_Publish(t *testing.T) {
	s := &Shared{}
	num := s.Publish(Work{JobID: "solo"})
	if num != 1 || s.Num() != 1 {
		t.Fatalf("publish generation = %d/%d, want 1", num, s.Num())
	}
	if got := s.Clone(); got.JobID != "solo" || got.Num != 1 {
		t.Errorf("clone = %+v", got)
	}
}

func TestWork_SetProgramChangeDetection(t *testing.T) {
	var w Work

	if !w.SetProgram("SHA2") {
		t.Error("first program should report changed")
	}
	first := w.Bytecode

	if w.SetProgram("SHA2") {
		t.Error("identical program should not recompile")
	}
	if &first[0] != &w.Bytecode[0] {
		t.Error("unchanged program should reuse prior bytecode")
	}

	if !w.SetProgram("SHA2 2") {
		t.Error("different program should report changed")
	}
}

func TestWork_Share(t *testing.T) {
	w := Work{Num: 7, JobID: "j", HexNtime: "62e2bc40"}
	sh := w.Share([4]byte{0xde, 0xad, 0xbe, 0xef})

	if sh.JobNum != 7 || sh.JobID != "j" || sh.HexNtime != "62e2bc40" {
		t.Errorf("share fields = %+v", sh)
	}
	if sh.Nonce != [4]byte{0xde, 0xad, 0xbe, 0xef} {
		t.Errorf("share nonce = %x", sh.Nonce)
	}
}
