package cian

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"fairprice/internal/adapters/browser"
	"fairprice/internal/adapters/observability"
	"fairprice/internal/domain"
)

// Fetcher runs one filtered search against the listings site through a leased
// browser session and parses the result page into domain listings. It never
// retries: escalation and retry are the analog finder's single coherent
// strategy.
type Fetcher struct {
	pool         *browser.Pool
	base         string
	rl           *rate.Limiter
	fetchTimeout time.Duration
}

func New(pool *browser.Pool, base string, rps int, fetchTimeout time.Duration) *Fetcher {
	if rps <= 0 {
		rps = 2
	}
	return &Fetcher{
		pool:         pool,
		base:         strings.TrimRight(base, "/"),
		rl:           rate.NewLimiter(rate.Limit(rps), rps),
		fetchTimeout: fetchTimeout,
	}
}

// card is what the in-page extraction script hands back per result row.
type card struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Price    string `json:"price"`
	Area     string `json:"area"`
	Rooms    string `json:"rooms"`
	District string `json:"district"`
}

// Search implements domain.ListingSource. The session is released on every
// exit path; navigation failure marks it unhealthy so the pool replaces it.
func (f *Fetcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Listing, error) {
	if err := f.rl.Wait(ctx); err != nil {
		return nil, err
	}

	sess, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	healthy := true
	defer func() { f.pool.Release(sess, healthy) }()

	runCtx, cancel := context.WithTimeout(sess.Context(), f.fetchTimeout)
	defer cancel()
	// Tie the page load to the caller so cancellation frees the session
	// promptly instead of waiting out the fetch timeout.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	target := f.searchURL(q)
	start := time.Now()

	var cards []card
	err = chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(extractScript, &cards),
	)
	if err != nil {
		healthy = false
		observability.ObserveFetch(string(q.Scope), "error", time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.FetchError{Rung: q.Rung, Err: err}
	}

	listings := f.parseCards(cards, q)
	outcome := "ok"
	if len(listings) == 0 {
		// Malformed or empty result page: the pipeline keeps going,
		// the finder decides whether to widen.
		outcome = "empty"
	}
	observability.ObserveFetch(string(q.Scope), outcome, time.Since(start))
	log.Debug().
		Str("url", target).
		Int("cards", len(cards)).
		Int("parsed", len(listings)).
		Msg("search page fetched")
	return listings, nil
}

// searchURL serializes the resolved query per the source's query contract.
func (f *Fetcher) searchURL(q domain.SearchQuery) string {
	v := url.Values{}
	v.Set("deal_type", "sale")
	v.Set("offer_type", "flat")
	v.Set("engine_version", "2")
	v.Set("region", q.Region)
	if q.District != "" {
		v.Set("district", q.District)
	}
	if q.MinPrice > 0 {
		v.Set("minprice", strconv.FormatInt(int64(q.MinPrice), 10))
	}
	if q.MaxPrice > 0 {
		v.Set("maxprice", strconv.FormatInt(int64(q.MaxPrice), 10))
	}
	if q.MinArea > 0 {
		v.Set("mintarea", strconv.FormatFloat(q.MinArea, 'f', 0, 64))
	}
	if q.MaxArea > 0 {
		v.Set("maxtarea", strconv.FormatFloat(q.MaxArea, 'f', 0, 64))
	}
	if q.MaxRooms > 0 {
		for r := q.MinRooms; r <= q.MaxRooms && r <= 6; r++ {
			v.Set(fmt.Sprintf("room%d", r), "1")
		}
	}
	return f.base + "/cat.php?" + v.Encode()
}

var (
	numRe   = regexp.MustCompile(`[\d]+(?:[.,]\d+)?`)
	roomsRe = regexp.MustCompile(`(\d+)\s*-?\s*комн|(\d+)\s*room`)
)

// parseCards validates raw rows into listings. Unparseable rows are dropped
// with a diagnostic log line, never propagated downstream.
func (f *Fetcher) parseCards(cards []card, q domain.SearchQuery) []domain.Listing {
	now := time.Now()
	out := make([]domain.Listing, 0, len(cards))
	for _, c := range cards {
		if c.URL == "" {
			continue
		}
		price := parseNumber(c.Price)
		area := parseNumber(c.Area)
		if price <= 0 || area <= 0 {
			log.Debug().Str("url", c.URL).Str("price", c.Price).Str("area", c.Area).
				Msg("dropping unparseable listing row")
			continue
		}
		id := c.ID
		if id == "" {
			id = c.URL
		}
		district := c.District
		if district == "" {
			district = q.District
		}
		out = append(out, domain.Listing{
			SourceID:  id,
			URL:       c.URL,
			Price:     price,
			Area:      area,
			Rooms:     parseRooms(c.Rooms),
			Region:    q.Region,
			District:  district,
			ScrapedAt: now,
		})
	}
	return out
}

// parseNumber pulls the first numeric token out of strings like
// "12 500 000 ₽" or "96,5 м²".
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	m := numRe.FindString(s)
	if m == "" {
		return 0
	}
	m = strings.ReplaceAll(m, ",", ".")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseRooms(s string) int {
	m := roomsRe.FindStringSubmatch(strings.ToLower(s))
	for i := 1; i < len(m); i++ {
		if m[i] != "" {
			n, _ := strconv.Atoi(m[i])
			return n
		}
	}
	// bare digit fallback: "2"
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return 0
}

// extractScript walks the result page and returns one object per offer card.
// Selector strategies mirror the site's markup generations, newest first.
const extractScript = `
(function() {
	var results = [];
	var cardSelectors = [
		'article[data-name="CardComponent"]',
		'div[data-name="LinkArea"]',
		'div[data-testid="offer-card"]'
	];
	var cards = [];
	for (var si = 0; si < cardSelectors.length; si++) {
		cards = document.querySelectorAll(cardSelectors[si]);
		if (cards.length > 0) break;
	}
	var seen = {};
	for (var i = 0; i < cards.length; i++) {
		var c = cards[i];
		var link = c.querySelector('a[href*="/sale/flat/"]') || c.querySelector('a[href*="/flat/"]');
		if (!link || !link.href || seen[link.href]) continue;
		seen[link.href] = true;

		var idMatch = link.href.match(/\/(\d+)\/?$/);

		var priceEl = c.querySelector('[data-mark="MainPrice"]') ||
		              c.querySelector('span[class*="price"]');
		var titleEl = c.querySelector('[data-mark="OfferTitle"]') ||
		              c.querySelector('span[class*="title"]');
		var geoEl   = c.querySelector('[data-name="GeoLabel"]') ||
		              c.querySelector('a[class*="geo"]');

		var title = titleEl ? titleEl.innerText : '';
		var areaMatch = title.match(/([\d.,]+)\s*м²/);

		results.push({
			id:       idMatch ? idMatch[1] : '',
			url:      link.href,
			price:    priceEl ? priceEl.innerText : '',
			area:     areaMatch ? areaMatch[1] : '',
			rooms:    title,
			district: geoEl ? geoEl.innerText : ''
		});
	}
	return results;
})()
`
