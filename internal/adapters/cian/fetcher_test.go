package cian

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"fairprice/internal/adapters/browser"
	"fairprice/internal/domain"
)

func testFetcher() *Fetcher {
	return New(browser.NewWithSpawner(1, time.Second, nil), "https://www.cian.ru/", 2, time.Second)
}

func TestSearch_ReleasesSessionOnFetchFailure(t *testing.T) {
	// Sessions spawned without chromedp wiring make every page load fail,
	// driving the unhealthy-release path on each Search.
	spawn := func(parent context.Context) (context.Context, context.CancelFunc, error) {
		ctx, cancel := context.WithCancel(parent)
		return ctx, cancel, nil
	}
	pool := browser.NewWithSpawner(1, 100*time.Millisecond, spawn)
	defer pool.Close()
	f := New(pool, "https://www.cian.ru", 100, time.Second)

	q := domain.SearchQuery{
		Region: "moscow", District: "presnensky",
		Scope: domain.ScopeDistrict, Rung: "district-tight",
	}
	for i := 0; i < 3; i++ {
		_, err := f.Search(context.Background(), q)
		if err == nil {
			t.Fatalf("fetch %d: expected failure without a real browser", i)
		}
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("fetch %d: got %v, want a FetchError", i, err)
		}
		if fe.Rung != "district-tight" {
			t.Fatalf("fetch %d: error should name the rung, got %q", i, fe.Rung)
		}
	}

	// Each failure must have freed its slot; a size-1 pool still serves.
	s, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("pool slot leaked across failed fetches: %v", err)
	}
	pool.Release(s, true)
}

func TestSearchURL(t *testing.T) {
	f := testFetcher()
	raw := f.searchURL(domain.SearchQuery{
		Region:   "moscow",
		District: "presnensky",
		MinPrice: 14_000_000,
		MaxPrice: 26_000_000,
		MinArea:  67.5,
		MaxArea:  125.4,
		MinRooms: 1,
		MaxRooms: 3,
		Scope:    domain.ScopeDistrict,
	})

	if !strings.HasPrefix(raw, "https://www.cian.ru/cat.php?") {
		t.Fatalf("trailing base slash must not double up: %s", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	want := map[string]string{
		"deal_type":  "sale",
		"offer_type": "flat",
		"region":     "moscow",
		"district":   "presnensky",
		"minprice":   "14000000",
		"maxprice":   "26000000",
		"mintarea":   "68", // whole square meters on the wire
		"maxtarea":   "125",
		"room1":      "1",
		"room2":      "1",
		"room3":      "1",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
	if q.Has("room4") {
		t.Errorf("room4 set for a 1..3 room query")
	}
}

func TestSearchURL_UnboundedRung(t *testing.T) {
	f := testFetcher()
	u, err := url.Parse(f.searchURL(domain.SearchQuery{Region: "moscow", Scope: domain.ScopeRegion}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	for _, k := range []string{"district", "minprice", "maxprice", "mintarea", "maxtarea", "room1"} {
		if q.Has(k) {
			t.Errorf("region-wide query must not constrain %s", k)
		}
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12 500 000 ₽", 12500000},
		{"12 500 000", 12500000}, // non-breaking spaces
		{"96,5 м²", 96.5},
		{"96.5", 96.5},
		{"от 8 900 000", 8900000},
		{"", 0},
		{"цена по запросу", 0},
	}
	for _, c := range cases {
		if got := parseNumber(c.in); got != c.want {
			t.Errorf("parseNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseRooms(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"2-комн. квартира, 96,5 м²", 2},
		{"3 комн.", 3},
		{"Студия, 25 м²", 0},
		{"4 rooms", 4},
		{" 2 ", 2},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseRooms(c.in); got != c.want {
			t.Errorf("parseRooms(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseCards(t *testing.T) {
	f := testFetcher()
	q := domain.SearchQuery{Region: "moscow", District: "presnensky", Scope: domain.ScopeDistrict}

	cards := []card{
		{ID: "101", URL: "https://www.cian.ru/sale/flat/101/", Price: "30 000 000 ₽",
			Area: "95", Rooms: "2-комн. квартира", District: "Пресненский"},
		{URL: "https://www.cian.ru/sale/flat/102/", Price: "28 500 000 ₽",
			Area: "91,2", Rooms: "2-комн. квартира"}, // no id, no district
		{URL: "", Price: "9 000 000", Area: "40"},                               // no link
		{URL: "https://www.cian.ru/sale/flat/103/", Price: "", Area: "88"},      // no price
		{URL: "https://www.cian.ru/sale/flat/104/", Price: "12 000 000 ₽", Area: ""}, // no area
	}

	got := f.parseCards(cards, q)
	if len(got) != 2 {
		t.Fatalf("want 2 parsed listings, got %d: %+v", len(got), got)
	}
	first := got[0]
	if first.SourceID != "101" || first.Price != 30_000_000 || first.Area != 95 || first.Rooms != 2 {
		t.Fatalf("first listing mangled: %+v", first)
	}
	if first.District != "Пресненский" {
		t.Fatalf("card district must win over the query's: %q", first.District)
	}
	second := got[1]
	if second.SourceID != second.URL {
		t.Fatalf("missing id must fall back to the url, got %q", second.SourceID)
	}
	if second.District != "presnensky" {
		t.Fatalf("missing district must fall back to the query's, got %q", second.District)
	}
	if second.Area != 91.2 {
		t.Fatalf("comma decimal area: got %v", second.Area)
	}
}
