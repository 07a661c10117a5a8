package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teemow/litcal-mcp/internal/litcal"
)

// DateLayout is the accepted date format.
const DateLayout = "2006-01-02"

var (
	calendarIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	localePattern     = regexp.MustCompile(`^[A-Za-z]{2,3}([_-][A-Za-z0-9]{2,8})*$`)
)

// Catalog answers which calendars exist. *metadata.Cache implements it.
type Catalog interface {
	IsValidNational(ctx context.Context, code string) bool
	IsValidDiocesan(ctx context.Context, id string) bool
	ListNationalCodes(ctx context.Context) []string
	ListDiocesanIDs(ctx context.Context) []string
}

// Error is a user-facing validation failure. Available, when set, lists the
// identifiers the user could have meant.
type Error struct {
	Field     string
	Message   string
	Available []string
}

func (e *Error) Error() string {
	return e.Message
}

// Validator checks and normalizes tool arguments.
type Validator struct {
	validate *validator.Validate
	catalog  Catalog
	now      func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source for default dates and years.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// New returns a Validator checking identifiers against catalog. A nil
// catalog accepts any well-formed identifier.
func New(catalog Catalog, opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(),
		catalog:  catalog,
		now:      time.Now,
	}
	mustRegister(v.validate, "calendar_id", calendarIDPattern)
	mustRegister(v.validate, "locale", localePattern)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// mustRegister adds a tag matching pattern and panics if the tag cannot be
// registered.
func mustRegister(validate *validator.Validate, tag string, pattern *regexp.Regexp) {
	if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// CalendarType parses a calendar type. Blank selects the General Roman
// Calendar.
func (v *Validator) CalendarType(s string) (litcal.CalendarType, error) {
	if strings.TrimSpace(s) == "" {
		return litcal.CalendarGeneralRoman, nil
	}
	ct, err := litcal.ParseCalendarType(s)
	if err != nil {
		return "", &Error{Field: "calendar_type", Message: fmt.Sprintf("Invalid calendar type: %s. Must be one of %s",
			strings.ToUpper(strings.TrimSpace(s)), joinQuoted(litcal.CalendarTypes))}
	}
	return ct, nil
}

// YearType parses a year type. Blank selects CIVIL.
func (v *Validator) YearType(s string) (litcal.YearType, error) {
	if strings.TrimSpace(s) == "" {
		return litcal.YearCivil, nil
	}
	yt, err := litcal.ParseYearType(s)
	if err != nil {
		return "", &Error{Field: "year_type", Message: fmt.Sprintf("Invalid year type: %s. Must be one of %s",
			strings.ToUpper(strings.TrimSpace(s)), joinQuoted(litcal.YearTypes))}
	}
	return yt, nil
}

// Year checks the year range. Zero selects the current year.
func (v *Validator) Year(year int) (int, error) {
	if year == 0 {
		return v.now().Year(), nil
	}
	if err := v.validate.Var(year, fmt.Sprintf("min=%d,max=%d", litcal.MinYear, litcal.MaxYear)); err != nil {
		return 0, &Error{Field: "year", Message: fmt.Sprintf("Year must be between %d and %d", litcal.MinYear, litcal.MaxYear)}
	}
	return year, nil
}

// TargetDate parses a YYYY-MM-DD date as midnight UTC. Blank selects today.
func (v *Validator) TargetDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := v.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	if err := v.validate.Var(s, "datetime="+DateLayout); err != nil {
		return time.Time{}, &Error{Field: "date", Message: fmt.Sprintf("Invalid date format: %s. Expected YYYY-MM-DD", s)}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &Error{Field: "date", Message: fmt.Sprintf("Invalid date format: %s. Expected YYYY-MM-DD", s)}
	}
	return t.UTC(), nil
}

// Locale checks that s looks like a language tag. Blank returns def.
func (v *Validator) Locale(s, def string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if err := v.validate.Var(s, "locale"); err != nil {
		return "", &Error{Field: "locale", Message: fmt.Sprintf("Invalid locale: %s. Expected a language code such as en or en_US", s)}
	}
	return s, nil
}

// Nation normalizes a national calendar code to upper case and checks it
// against the catalog.
func (v *Validator) Nation(ctx context.Context, s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if code == "" {
		return "", &Error{Field: "nation", Message: "Nation code is required"}
	}
	if err := v.validate.Var(code, "calendar_id"); err != nil {
		return "", &Error{Field: "nation", Message: fmt.Sprintf("Invalid nation code: %s", code)}
	}
	if v.catalog != nil && !v.catalog.IsValidNational(ctx, code) {
		return "", &Error{
			Field:     "nation",
			Message:   fmt.Sprintf("National calendar not found for: %s", code),
			Available: v.catalog.ListNationalCodes(ctx),
		}
	}
	return code, nil
}

// Diocese normalizes a diocesan calendar id to lower case and checks it
// against the catalog.
func (v *Validator) Diocese(ctx context.Context, s string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	if id == "" {
		return "", &Error{Field: "diocese", Message: "Diocese ID is required"}
	}
	if err := v.validate.Var(id, "calendar_id"); err != nil {
		return "", &Error{Field: "diocese", Message: fmt.Sprintf("Invalid diocese ID: %s", id)}
	}
	if v.catalog != nil && !v.catalog.IsValidDiocesan(ctx, id) {
		return "", &Error{
			Field:     "diocese",
			Message:   fmt.Sprintf("Diocesan calendar not found for: %s", id),
			Available: v.catalog.ListDiocesanIDs(ctx),
		}
	}
	return id, nil
}

// CalendarID validates id for the given calendar type. The General Roman
// Calendar takes no id and always yields "".
func (v *Validator) CalendarID(ctx context.Context, calendarType litcal.CalendarType, id string) (string, error) {
	switch calendarType {
	case litcal.CalendarNational:
		return v.Nation(ctx, id)
	case litcal.CalendarDiocesan:
		return v.Diocese(ctx, id)
	}
	return "", nil
}

func joinQuoted[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, val := range values {
		parts[i] = fmt.Sprintf("%q", string(val))
	}
	return strings.Join(parts, ", ")
}
