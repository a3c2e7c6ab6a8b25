package service

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)
	idnaProfile  = idna.Lookup
)

const defaultPhoneRegion = "US"

// ValidationError indicates the intake payload failed a contact check.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ErrNoContactInfo is returned when a lead carries neither email nor phone.
var ErrNoContactInfo = errors.New("lead requires an email or phone number")

// DNSResolver abstracts DNS lookups to simplify testing.
type DNSResolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

type systemDNSResolver struct{}

func (systemDNSResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}

// LeadIntake normalizes and validates contact data before leads are stored.
type LeadIntake struct {
	DefaultRegion string
	dnsResolver   DNSResolver
	verifyDomains bool
}

// LeadIntakeOption configures optional dependencies.
type LeadIntakeOption func(*LeadIntake)

// WithDNSResolver overrides the default MX resolver.
func WithDNSResolver(resolver DNSResolver) LeadIntakeOption {
	return func(i *LeadIntake) {
		if resolver != nil {
			i.dnsResolver = resolver
			i.verifyDomains = true
		}
	}
}

// WithDomainVerification toggles MX-record verification of email domains.
func WithDomainVerification(enabled bool) LeadIntakeOption {
	return func(i *LeadIntake) {
		i.verifyDomains = enabled
	}
}

// NewLeadIntake builds an intake validator with sensible defaults. Domain
// verification is off by default so intake never blocks on DNS.
func NewLeadIntake(defaultRegion string, opts ...LeadIntakeOption) *LeadIntake {
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	i := &LeadIntake{
		DefaultRegion: region,
		dnsResolver:   systemDNSResolver{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// BuildLead validates the intake payload and produces a lead entity ready for
// persistence. At least one of email or phone is required.
func (i *LeadIntake) BuildLead(ctx context.Context, req dto.CreateLeadRequest) (*entity.Lead, error) {
	email, err := i.cleanEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := i.normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if email == "" && phone == "" {
		return nil, ErrNoContactInfo
	}

	website := normalizeWebsite(req.Website)

	lead := &entity.Lead{
		FullName:        optionalText(req.FullName),
		Email:           optionalText(email),
		Phone:           optionalText(phone),
		BusinessName:    optionalText(req.BusinessName),
		BusinessType:    optionalText(req.BusinessType),
		Website:         optionalText(website),
		VideoGoals:      optionalText(req.VideoGoals),
		Timeline:        optionalText(req.Timeline),
		BudgetRange:     optionalText(req.BudgetRange),
		BudgetAllocated: optionalText(req.BudgetAllocated),
		PackageInterest: optionalText(req.PackageInterest),
		Source:          optionalText(req.Source),
		Status:          entity.LeadStatusNew,
	}

	return lead, nil
}

// CleanContact normalizes a bare email/phone pair, used by webhook ingestion
// where a malformed field should degrade to absent rather than reject the call.
func (i *LeadIntake) CleanContact(ctx context.Context, email, phone string) (string, string) {
	cleanedEmail, err := i.cleanEmail(ctx, email)
	if err != nil {
		cleanedEmail = ""
	}
	cleanedPhone, err := i.normalizePhone(phone)
	if err != nil {
		cleanedPhone = ""
	}
	return cleanedEmail, cleanedPhone
}

func (i *LeadIntake) cleanEmail(ctx context.Context, raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", nil
	}
	if !emailPattern.MatchString(email) {
		return "", ValidationError{Field: "email", Message: "invalid format"}
	}

	parts := strings.SplitN(email, "@", 2)
	asciiDomain, err := idnaProfile.ToASCII(parts[1])
	if err != nil || asciiDomain == "" {
		return "", ValidationError{Field: "email", Message: "invalid domain"}
	}

	if i.verifyDomains && !i.hasMXRecord(ctx, asciiDomain) {
		return "", ValidationError{Field: "email", Message: "domain does not accept mail"}
	}

	return parts[0] + "@" + asciiDomain, nil
}

func (i *LeadIntake) normalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", nil
	}

	parsed, err := phonenumbers.Parse(phone, i.DefaultRegion)
	if err != nil {
		return "", ValidationError{Field: "phone", Message: "unparseable number"}
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", ValidationError{Field: "phone", Message: "invalid number"}
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func (i *LeadIntake) hasMXRecord(ctx context.Context, domain string) bool {
	if i.dnsResolver == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	records, err := i.dnsResolver.LookupMX(ctx, domain)
	return err == nil && len(records) > 0
}

// normalizeWebsite canonicalizes a website URL, defaulting to https and
// stripping tracking parameters. Unparseable input degrades to empty.
func normalizeWebsite(raw string) string {
	site := strings.TrimSpace(raw)
	if site == "" {
		return ""
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}

	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Fragment = ""

	query := u.Query()
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			query.Del(key)
		}
	}
	u.RawQuery = query.Encode()

	return u.String()
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
