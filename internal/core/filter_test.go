package core

import (
	"testing"
	"time"

	"certporter/internal/store"
)

var filterNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func filterRecords() []store.Record {
	return []store.Record{
		{
			Subject:  "CN=alpha.example.com,O=Acme",
			Issuer:   "CN=Acme Root CA",
			NotAfter: filterNow.Add(400 * 24 * time.Hour),
		},
		{
			Subject:  "CN=beta.example.com,O=Globex",
			Issuer:   "CN=Globex Issuing CA",
			NotAfter: filterNow.Add(20 * 24 * time.Hour),
		},
		{
			Subject:  "CN=expired.example.com,O=Acme",
			Issuer:   "CN=Acme Root CA",
			NotAfter: filterNow.Add(-24 * time.Hour),
		},
	}
}

func TestApplyFilterDefaultSpecDropsOnlyExpired(t *testing.T) {
	got := ApplyFilter(filterRecords(), FilterSpec{}, filterNow)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for _, r := range got {
		if !r.NotAfter.After(filterNow) {
			t.Errorf("expired record %s passed the default filter", r.Subject)
		}
	}
}

func TestApplyFilterMinDays(t *testing.T) {
	got := ApplyFilter(filterRecords(), FilterSpec{MinDaysRemaining: 30}, filterNow)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Subject != "CN=alpha.example.com,O=Acme" {
		t.Errorf("wrong record survived: %s", got[0].Subject)
	}
}

func TestApplyFilterSubjectCaseInsensitive(t *testing.T) {
	got := ApplyFilter(filterRecords(), FilterSpec{Subject: "BETA.Example"}, filterNow)
	if len(got) != 1 || got[0].Subject != "CN=beta.example.com,O=Globex" {
		t.Fatalf("subject filter failed: %+v", got)
	}
}

func TestApplyFilterConjunction(t *testing.T) {
	// Subject matches alpha and beta; issuer narrows to the Acme one.
	got := ApplyFilter(filterRecords(), FilterSpec{Subject: "example.com", Issuer: "acme"}, filterNow)
	if len(got) != 1 || got[0].Subject != "CN=alpha.example.com,O=Acme" {
		t.Fatalf("conjunction failed: %+v", got)
	}
}

func TestApplyFilterResultIsSubsetInOrder(t *testing.T) {
	records := filterRecords()
	got := ApplyFilter(records, FilterSpec{Subject: "example"}, filterNow)
	j := 0
	for _, r := range got {
		found := false
		for ; j < len(records); j++ {
			if records[j].Subject == r.Subject {
				found = true
				j++
				break
			}
		}
		if !found {
			t.Fatalf("result record %s not in input order", r.Subject)
		}
	}
}

func TestApplyFilterNoMatchesIsEmptyNotNilPanic(t *testing.T) {
	got := ApplyFilter(filterRecords(), FilterSpec{Subject: "no-such-host"}, filterNow)
	if len(got) != 0 {
		t.Fatalf("got %d records, want 0", len(got))
	}
}
