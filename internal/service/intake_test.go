package service

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
)

type fakeDNSResolver struct {
	records map[string][]*net.MX
}

func (f fakeDNSResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	records, ok := f.records[domain]
	if !ok {
		return nil, errors.New("no such host")
	}
	return records, nil
}

func TestBuildLead_NormalizesContact(t *testing.T) {
	intake := NewLeadIntake("US")

	lead, err := intake.BuildLead(context.Background(), dto.CreateLeadRequest{
		FullName: "  Jordan Reyes ",
		Email:    " Jordan@Acme.COM ",
		Phone:    "(650) 253-0000",
		Website:  "acme.com/pricing?utm_source=ad&plan=pro",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lead.Email == nil || *lead.Email != "jordan@acme.com" {
		t.Fatalf("expected lowercased email, got %v", lead.Email)
	}
	if lead.Phone == nil || *lead.Phone != "+16502530000" {
		t.Fatalf("expected E.164 phone, got %v", lead.Phone)
	}
	if lead.Website == nil || *lead.Website != "https://acme.com/pricing?plan=pro" {
		t.Fatalf("expected canonical website without utm params, got %v", lead.Website)
	}
	if lead.FullName == nil || *lead.FullName != "Jordan Reyes" {
		t.Fatalf("expected trimmed name, got %v", lead.FullName)
	}
	if lead.Status != entity.LeadStatusNew {
		t.Fatalf("expected NEW status, got %s", lead.Status)
	}
}

func TestBuildLead_RequiresContactInfo(t *testing.T) {
	intake := NewLeadIntake("US")

	_, err := intake.BuildLead(context.Background(), dto.CreateLeadRequest{FullName: "No Contact"})
	if !errors.Is(err, ErrNoContactInfo) {
		t.Fatalf("expected ErrNoContactInfo, got %v", err)
	}
}

func TestBuildLead_RejectsBadEmail(t *testing.T) {
	intake := NewLeadIntake("US")

	_, err := intake.BuildLead(context.Background(), dto.CreateLeadRequest{Email: "not-an-email"})
	var vErr ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
}

func TestBuildLead_RejectsBadPhone(t *testing.T) {
	intake := NewLeadIntake("US")

	_, err := intake.BuildLead(context.Background(), dto.CreateLeadRequest{Phone: "12345"})
	var vErr ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "phone" {
		t.Fatalf("expected phone validation error, got %v", err)
	}
}

func TestBuildLead_DomainVerification(t *testing.T) {
	resolver := fakeDNSResolver{records: map[string][]*net.MX{
		"acme.com": {{Host: "mx.acme.com", Pref: 10}},
	}}
	intake := NewLeadIntake("US", WithDNSResolver(resolver))

	if _, err := intake.BuildLead(context.Background(), dto.CreateLeadRequest{Email: "a@acme.com"}); err != nil {
		t.Fatalf("expected domain with MX to pass, got %v", err)
	}

	_, err := intake.BuildLead(context.Background(), dto.CreateLeadRequest{Email: "a@dead-domain.example"})
	var vErr ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "email" {
		t.Fatalf("expected MX failure, got %v", err)
	}
}

func TestCleanContact_DegradesInvalidToEmpty(t *testing.T) {
	intake := NewLeadIntake("US")

	email, phone := intake.CleanContact(context.Background(), "broken@@example", "not a number")
	if email != "" || phone != "" {
		t.Fatalf("expected invalid contact to degrade to empty, got %q / %q", email, phone)
	}

	email, phone = intake.CleanContact(context.Background(), "Valid@Example.com", "")
	if email != "valid@example.com" || phone != "" {
		t.Fatalf("unexpected normalization: %q / %q", email, phone)
	}
}

func TestNormalizeWebsite(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"bare domain":      {"acme.com", "https://acme.com"},
		"keeps scheme":     {"http://acme.com", "http://acme.com"},
		"strips fragment":  {"https://acme.com/p#section", "https://acme.com/p"},
		"strips tracking":  {"https://acme.com/?utm_campaign=x&q=1", "https://acme.com/?q=1"},
		"empty":            {"   ", ""},
		"garbage degrades": {"https://", ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := normalizeWebsite(tc.in); got != tc.want {
				t.Fatalf("normalizeWebsite(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
