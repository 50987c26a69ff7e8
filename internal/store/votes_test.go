package store

import "testing"

func TestUpsertCouncilMemberAndList(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")

	if err := s.UpsertCouncilMember(CouncilMember{Banana: "cupertinoCA", Name: "J. Smith", Seat: "District 1", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertCouncilMember(CouncilMember{Banana: "cupertinoCA", Name: "R. Lee", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertCouncilMember(CouncilMember{Banana: "cupertinoCA", Name: "Former Member", Active: false}); err != nil {
		t.Fatal(err)
	}

	members, err := s.ListCouncilMembers("cupertinoCA")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 active members, got %d", len(members))
	}
}

func TestRecordVoteAndTally(t *testing.T) {
	s := tempStore(t)
	seedMeeting(t, s, "abc12345", "cupertinoCA")
	if err := s.UpsertAgendaItem(AgendaItem{ID: "item-1", MeetingID: "abc12345", Title: "Rezoning", Sequence: 1}); err != nil {
		t.Fatal(err)
	}

	votes := []Vote{
		{ItemID: "item-1", MeetingID: "abc12345", Member: "J. Smith", Choice: "yes"},
		{ItemID: "item-1", MeetingID: "abc12345", Member: "R. Lee", Choice: "yes"},
		{ItemID: "item-1", MeetingID: "abc12345", Member: "T. Nguyen", Choice: "no"},
	}
	for _, v := range votes {
		if err := s.RecordVote(v); err != nil {
			t.Fatal(err)
		}
	}

	tally, err := s.TallyVotes("item-1")
	if err != nil {
		t.Fatal(err)
	}
	if tally["yes"] != 2 {
		t.Errorf("expected 2 yes votes, got %d", tally["yes"])
	}
	if tally["no"] != 1 {
		t.Errorf("expected 1 no vote, got %d", tally["no"])
	}

	all, err := s.ListVotes("item-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 votes listed, got %d", len(all))
	}
}
