package bilibili

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"bili-downloader/app/logger"
)

type stubProber struct {
	nav   *NavInfo
	err   error
	calls int
}

func (p *stubProber) Nav(ctx context.Context, sess Session) (*NavInfo, error) {
	p.calls++
	return p.nav, p.err
}

func TestResolveTierWithoutCredentialSkipsProbe(t *testing.T) {
	prober := &stubProber{}
	perms := NewPermissionResolver(prober, time.Minute, logger.NewNop())

	tier, err := perms.ResolveTier(context.Background(), Session{SESSDATA: "  "})
	if err != nil {
		t.Fatalf("ResolveTier() error = %v", err)
	}
	if tier != TierGuest {
		t.Errorf("ResolveTier() = %v, expected %v", tier, TierGuest)
	}
	if prober.calls != 0 {
		t.Errorf("probe called %d times, expected 0", prober.calls)
	}
}

func TestResolveTierClassification(t *testing.T) {
	tests := []struct {
		name     string
		nav      NavInfo
		expected Tier
	}{
		{"not logged in", NavInfo{IsLogin: false}, TierGuest},
		{"member", NavInfo{IsLogin: true, VipStatus: 0}, TierMember},
		{"premium", NavInfo{IsLogin: true, VipStatus: 1}, TierPremium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := tt.nav
			perms := NewPermissionResolver(&stubProber{nav: &nav}, 0, logger.NewNop())
			tier, err := perms.ResolveTier(context.Background(), Session{SESSDATA: "token"})
			if err != nil {
				t.Fatalf("ResolveTier() error = %v", err)
			}
			if tier != tt.expected {
				t.Errorf("ResolveTier() = %v, expected %v", tier, tt.expected)
			}
		})
	}
}

func TestResolveTierProbeFailure(t *testing.T) {
	perms := NewPermissionResolver(&stubProber{err: errors.New("connection refused")}, time.Minute, logger.NewNop())

	_, err := perms.ResolveTier(context.Background(), Session{SESSDATA: "token"})
	if !errors.Is(err, ErrAuthProbeFailed) {
		t.Fatalf("ResolveTier() error = %v, expected ErrAuthProbeFailed", err)
	}

	if tier := perms.TierOrGuest(context.Background(), Session{SESSDATA: "token"}); tier != TierGuest {
		t.Errorf("TierOrGuest() = %v, expected %v", tier, TierGuest)
	}
}

func TestTierOrGuestUsesCache(t *testing.T) {
	prober := &stubProber{nav: &NavInfo{IsLogin: true, VipStatus: 1}}
	perms := NewPermissionResolver(prober, time.Minute, logger.NewNop())
	sess := Session{SESSDATA: "token"}

	for i := 0; i < 3; i++ {
		if tier := perms.TierOrGuest(context.Background(), sess); tier != TierPremium {
			t.Fatalf("TierOrGuest() = %v, expected %v", tier, TierPremium)
		}
	}
	if prober.calls != 1 {
		t.Errorf("probe called %d times, expected 1", prober.calls)
	}

	perms.Forget("token")
	perms.TierOrGuest(context.Background(), sess)
	if prober.calls != 2 {
		t.Errorf("probe called %d times after Forget, expected 2", prober.calls)
	}
}

func TestResolveTierAlwaysProbes(t *testing.T) {
	prober := &stubProber{nav: &NavInfo{IsLogin: true}}
	perms := NewPermissionResolver(prober, time.Minute, logger.NewNop())
	sess := Session{SESSDATA: "token"}

	perms.ResolveTier(context.Background(), sess)
	perms.ResolveTier(context.Background(), sess)
	if prober.calls != 2 {
		t.Errorf("probe called %d times, expected 2", prober.calls)
	}
}

func TestClientNavSendsCredential(t *testing.T) {
	f := newFakePlatform(t)
	var cookie string
	f.handle("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		navHandler(true, 0)(w, r)
	})
	s := newTestStack(t, f)

	tier, err := s.perms.ResolveTier(context.Background(), Session{SESSDATA: "secret"})
	if err != nil {
		t.Fatalf("ResolveTier() error = %v", err)
	}
	if tier != TierMember {
		t.Errorf("ResolveTier() = %v, expected %v", tier, TierMember)
	}
	if cookie != "SESSDATA=secret" {
		t.Errorf("Cookie header = %q, expected SESSDATA=secret", cookie)
	}
}
