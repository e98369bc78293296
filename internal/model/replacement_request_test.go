package model

import (
	"errors"
	"testing"
)

func TestSuggestionSet_Toggle(t *testing.T) {
	s := NewSuggestionSet(3)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Toggle(id); err != nil {
			t.Fatalf("Toggle(%s) 应成功: %v", id, err)
		}
	}

	err := s.Toggle("d")
	if !errors.Is(err, ErrSuggestionLimit) {
		t.Fatalf("第 4 个应返回 ErrSuggestionLimit, 实际: %v", err)
	}
	if got := s.IDs(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("超限后集合应不变, 实际 %v", got)
	}

	// 取消选择后可再添加
	if err := s.Toggle("b"); err != nil {
		t.Fatalf("取消选择应成功: %v", err)
	}
	if err := s.Toggle("d"); err != nil {
		t.Fatalf("取消后添加应成功: %v", err)
	}
	if got := s.IDs(); len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "d" {
		t.Errorf("期望 [a c d], 实际 %v", got)
	}
}

func TestSuggestionSet_IDsIsCopy(t *testing.T) {
	s := NewSuggestionSet(3)
	_ = s.Toggle("a")
	ids := s.IDs()
	ids[0] = "z"
	if s.IDs()[0] != "a" {
		t.Error("IDs 应返回副本")
	}
}

func TestReplacementStatus_IsActive(t *testing.T) {
	active := map[ReplacementStatus]bool{
		ReplacementPending:              true,
		ReplacementApprovedAwaiting:     true,
		ReplacementApprovedFound:        false,
		ReplacementRejected:             false,
		ReplacementCancelledByRequester: false,
	}
	for st, want := range active {
		if st.IsActive() != want {
			t.Errorf("%s.IsActive(): 期望 %v", st, want)
		}
	}
}
