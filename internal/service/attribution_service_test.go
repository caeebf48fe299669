package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/linkledger/internal/models"
)

func TestAttributionResolveConcurrentClicks(t *testing.T) {
	f := setupLedgerFixture(t)
	merchant := f.createMerchant(t, "10")
	link := f.createLink(t, merchant.ID, uintPtr(7), "summer-drop")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.attribution.Resolve(context.Background(), "summer-drop", ClickMeta{
				IP:        "203.0.113.10",
				UserAgent: "test-agent",
				UTM:       map[string]string{"utm_source": "newsletter"},
			})
			if err != nil {
				errs <- err
				return
			}
			if result.DestinationURL != link.DestinationURL {
				errs <- errors.New("unexpected destination: " + result.DestinationURL)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("resolve failed: %v", err)
	}

	var stored models.Link
	if err := f.db.First(&stored, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if stored.ClickCount != workers {
		t.Fatalf("click counter want %d got %d", workers, stored.ClickCount)
	}
	var clicks int64
	f.db.Model(&models.Click{}).Where("link_id = ?", link.ID).Count(&clicks)
	if clicks != workers {
		t.Fatalf("click rows want %d got %d", workers, clicks)
	}
	var account models.AffiliateAccount
	if err := f.db.First(&account, 7).Error; err != nil {
		t.Fatalf("load affiliate account failed: %v", err)
	}
	if account.ClickCount != workers {
		t.Fatalf("affiliate click count want %d got %d", workers, account.ClickCount)
	}
}

func TestAttributionResolveUnknownOrInactive(t *testing.T) {
	f := setupLedgerFixture(t)
	merchant := f.createMerchant(t, "10")
	link := f.createLink(t, merchant.ID, nil, "paused")

	if _, err := f.attribution.Resolve(context.Background(), "missing", ClickMeta{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown slug, got %v", err)
	}
	if _, err := f.links.SetActive(context.Background(), link.ID, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := f.attribution.Resolve(context.Background(), "paused", ClickMeta{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for inactive link, got %v", err)
	}
	var clicks int64
	f.db.Model(&models.Click{}).Count(&clicks)
	if clicks != 0 {
		t.Fatalf("no click rows expected, got %d", clicks)
	}
}

func TestAttributionResolveWithoutAffiliate(t *testing.T) {
	f := setupLedgerFixture(t)
	merchant := f.createMerchant(t, "10")
	f.createLink(t, merchant.ID, nil, "house-link")

	result, err := f.attribution.Resolve(context.Background(), "house-link", ClickMeta{AffiliateCodeHint: "ALICE"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if result.AffiliateID != nil {
		t.Fatalf("expected no affiliate, got %d", *result.AffiliateID)
	}
	var click models.Click
	if err := f.db.First(&click, result.ClickID).Error; err != nil {
		t.Fatalf("load click failed: %v", err)
	}
	if click.AffiliateCodeHint != "ALICE" {
		t.Fatalf("hint should be stored as-is, got %q", click.AffiliateCodeHint)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	value := "a" + strings.Repeat("é", 600)
	got := truncate(value, 1024)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated value is not valid utf-8")
	}
	if len(got) != 1023 {
		t.Fatalf("want 1023 bytes, got %d", len(got))
	}
	if got := truncate("  短链  ", 64); got != "短链" {
		t.Fatalf("short value should only be trimmed, got %q", got)
	}
	if got := truncate("审核不通过", 4); got != "审" {
		t.Fatalf("want first rune only, got %q", got)
	}
}

func TestAttributionResolveLongNonASCIIUserAgent(t *testing.T) {
	f := setupLedgerFixture(t)
	merchant := f.createMerchant(t, "10")
	f.createLink(t, merchant.ID, uintPtr(7), "long-agent")

	meta := ClickMeta{
		UserAgent: "a" + strings.Repeat("é", 600),
		Referrer:  "https://example.com/" + strings.Repeat("商品", 300),
	}
	result, err := f.attribution.Resolve(context.Background(), "long-agent", meta)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	var click models.Click
	if err := f.db.First(&click, result.ClickID).Error; err != nil {
		t.Fatalf("load click failed: %v", err)
	}
	if !utf8.ValidString(click.UserAgent) || !utf8.ValidString(click.Referrer) {
		t.Fatalf("stored click metadata must be valid utf-8")
	}
	if len(click.UserAgent) > 1024 || len(click.Referrer) > 1024 {
		t.Fatalf("stored click metadata exceeds column size")
	}
}

func TestLinkServiceCreateSlug(t *testing.T) {
	f := setupLedgerFixture(t)
	merchant := f.createMerchant(t, "10")

	link, err := f.links.Create(context.Background(), CreateLinkInput{
		MerchantID:     merchant.ID,
		DestinationURL: "https://shop.example/p/1",
		Slug:           "Black Friday Deals",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if link.Slug != "black-friday-deals" {
		t.Fatalf("unexpected slug: %s", link.Slug)
	}
	_, err = f.links.Create(context.Background(), CreateLinkInput{
		MerchantID:     merchant.ID,
		DestinationURL: "https://shop.example/p/2",
		Slug:           "black-friday-deals",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	_, err = f.links.Create(context.Background(), CreateLinkInput{
		MerchantID:     merchant.ID,
		DestinationURL: "javascript:alert(1)",
	})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}

	generated, err := f.links.Create(context.Background(), CreateLinkInput{
		MerchantID:     merchant.ID,
		DestinationURL: "https://shop.example/p/3",
	})
	if err != nil {
		t.Fatalf("create generated link failed: %v", err)
	}
	if generated.Slug == "" {
		t.Fatalf("expected generated slug")
	}
}
