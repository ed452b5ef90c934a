// pkg/cleaner/entities.go
package cleaner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// Entity identifies which cleaning rules apply to a table
type Entity string

const (
	EntityUsers      Entity = "users"
	EntityCards      Entity = "cards"
	EntityStores     Entity = "stores"
	EntityProducts   Entity = "products"
	EntityOrders     Entity = "orders"
	EntityDateEvents Entity = "date_events"
)

// ErrUnknownEntity is returned for entity names without a cleaner
var ErrUnknownEntity = errors.New("unknown entity")

// CleanFunc is a pure cleaning function over a table
type CleanFunc func(model.Table) (model.Table, model.Report)

var cleaners = map[Entity]CleanFunc{
	EntityUsers:      CleanUserData,
	EntityCards:      CleanCardData,
	EntityStores:     CleanStoreData,
	EntityProducts:   CleanProductsData,
	EntityOrders:     CleanOrdersData,
	EntityDateEvents: CleanDateEvents,
}

// Entities lists all entities in pipeline order
func Entities() []Entity {
	return []Entity{EntityUsers, EntityCards, EntityStores, EntityProducts, EntityOrders, EntityDateEvents}
}

// ParseEntity resolves an entity name (case-insensitive)
func ParseEntity(name string) (Entity, error) {
	e := Entity(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := cleaners[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return e, nil
}

// String returns the entity name
func (e Entity) String() string {
	return string(e)
}

// CleanerFor returns the cleaning function for an entity
func CleanerFor(e Entity) (CleanFunc, error) {
	fn, ok := cleaners[e]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, string(e))
	}
	return fn, nil
}

// combinedCardColumn holds "card_number expiry_date" pairs in some PDF pages
const combinedCardColumn = "card_number expiry_date"

// CleanUserData cleans user records. Rows without a valid user_uuid are dropped.
func CleanUserData(t model.Table) (model.Table, model.Report) {
	p := newPass(t)
	p.sanitize()
	p.parseDates()
	p.apply("user_uuid", "bad_string", BadStringFilter.Validate)
	p.validate("user_uuid", UUIDValidator, "invalid_uuid")
	p.requireKeys("user_uuid")
	p.validate("country_code", CountryCodes, "unknown_country_code")
	p.validate("country", Countries, "unknown_country")
	p.apply("phone_number", "", CleanPhoneNumber)
	p.apply("address", "", CleanAddress)
	return p.settle()
}

// CleanCardData cleans card records. Rows without a card number are dropped.
func CleanCardData(t model.Table) (model.Table, model.Report) {
	p := newPass(t)
	p.splitCardColumns()
	p.sanitize()
	p.apply("card_number", "invalid_card_number", CleanCardNumber)
	p.apply(ExpiryDateColumn, "bad_string", BadStringFilter.Validate)
	p.apply(ExpiryDateColumn, "unparseable_expiry_date", ParseExpiryDate)
	p.parseDates()
	p.validate("card_provider", CardProviders, "unknown_card_provider")
	p.requireKeys("card_number")
	return p.settle()
}

// CleanStoreData cleans store records
func CleanStoreData(t model.Table) (model.Table, model.Report) {
	p := newPass(t)
	p.sanitize()
	p.apply("address", "", CleanAddress)
	p.apply("continent", "", CleanContinent)
	p.applyAll("bad_string", BadStringFilter.Validate, "store_code")
	p.parseDates()
	p.validate("country_code", CountryCodes, "unknown_country_code")
	p.apply("staff_numbers", "invalid_staff_numbers", CleanStaffNumbers)
	p.apply("longitude", "invalid_coordinate", ParseFloat)
	p.apply("latitude", "invalid_coordinate", ParseFloat)
	return p.settle()
}

// CleanProductsData cleans product records. Rows missing product_code, uuid
// or product_name are dropped.
func CleanProductsData(t model.Table) (model.Table, model.Report) {
	p := newPass(t)
	p.sanitize()
	p.applyAll("bad_string", BadStringFilter.Validate)
	p.requireKeys("product_code", "uuid", "product_name")
	p.parseDates()
	p.apply("product_price", "invalid_price", ParsePrice)
	p.apply("weight", "invalid_weight", ConvertWeight)
	return p.settle()
}

// CleanOrdersData applies the generic sanitizer only
func CleanOrdersData(t model.Table) (model.Table, model.Report) {
	return Sanitize(t)
}

// CleanDateEvents cleans date dimension records. Rows without a valid
// date_uuid are dropped.
func CleanDateEvents(t model.Table) (model.Table, model.Report) {
	p := newPass(t)
	p.sanitize()
	p.validate("date_uuid", UUIDValidator, "invalid_uuid")
	p.requireKeys("date_uuid")
	p.applyAll("bad_string", BadStringFilter.Validate)
	for _, col := range []string{"year", "month", "day"} {
		p.apply(col, "non_numeric", ParseDigits)
	}
	return p.settle()
}

// pass threads a table through cleaning steps and records what each step did
type pass struct {
	table  model.Table
	report model.Report
}

func newPass(t model.Table) *pass {
	return &pass{table: t}
}

func (p *pass) sanitize() {
	t, r := Sanitize(p.table)
	p.table = t
	p.report.Merge(r)
}

// settle re-runs the sanitizer so rows or columns emptied by earlier steps
// do not survive, then returns the result
func (p *pass) settle() (model.Table, model.Report) {
	p.sanitize()
	return p.table, p.report
}

// apply maps fn over a column, counting values it turned into nulls
func (p *pass) apply(column, reason string, fn func(interface{}) interface{}) {
	if !p.table.HasColumn(column) {
		return
	}
	before := p.table.NullCount(column)
	p.table = p.table.MapColumn(column, fn)
	if reason == "" {
		reason = "normalization"
	}
	p.report.Add(model.OpValueNulled, column, reason, p.table.NullCount(column)-before)
}

func (p *pass) validate(column string, v Validator, reason string) {
	p.apply(column, reason, v.Validate)
}

// applyAll maps fn over every column except the skipped ones
func (p *pass) applyAll(reason string, fn func(interface{}) interface{}, skip ...string) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	for _, col := range p.table.Columns() {
		if !skipped[col] {
			p.apply(col, reason, fn)
		}
	}
}

// parseDates parses every date column; expiry dates use their strict layout
func (p *pass) parseDates() {
	for _, col := range p.table.Columns() {
		if col == ExpiryDateColumn || !IsDateColumn(col) {
			continue
		}
		p.apply(col, "unparseable_date", ParseDate)
	}
}

// requireKeys drops rows that are null in any of the columns.
// A missing key column counts as null for every row.
func (p *pass) requireKeys(columns ...string) {
	for _, col := range columns {
		before := p.table.NumRows()
		if !p.table.HasColumn(col) {
			p.table = p.table.FilterRows(func(int) bool { return false })
		} else {
			t := p.table
			p.table = t.FilterRows(func(i int) bool { return t.Value(i, col) != nil })
		}
		p.report.Add(model.OpRowDropped, col, "missing_"+col, before-p.table.NumRows())
	}
}

// splitCardColumns moves "card_number expiry_date" pairs into their own
// columns and removes the combined column
func (p *pass) splitCardColumns() {
	if !p.table.HasColumn(combinedCardColumn) {
		return
	}
	t := p.table
	for _, col := range []string{"card_number", ExpiryDateColumn} {
		if !t.HasColumn(col) {
			t, _ = t.WithColumn(col, make([]interface{}, t.NumRows()))
		}
	}

	split := func(row map[string]interface{}) (string, string, bool) {
		s, ok := row[combinedCardColumn].(string)
		if !ok {
			return "", "", false
		}
		parts := strings.Split(strings.TrimSpace(s), " ")
		if len(parts) != 2 {
			return "", "", false
		}
		return parts[0], parts[1], true
	}

	// both columns are computed from the unsplit rows
	src := t
	numbers := src.MapRows("card_number", func(row map[string]interface{}) interface{} {
		if num, _, ok := split(row); ok && isAllDigits(num) {
			return num
		}
		return row["card_number"]
	})
	expiries := src.MapRows(ExpiryDateColumn, func(row map[string]interface{}) interface{} {
		if _, exp, ok := split(row); ok && exp != "" && unicode.IsDigit(rune(exp[0])) {
			return exp
		}
		return row[ExpiryDateColumn]
	})
	expiryValues, _ := expiries.Column(ExpiryDateColumn)
	t, _ = numbers.WithColumn(ExpiryDateColumn, expiryValues)

	p.table = t.DropColumns(combinedCardColumn)
	p.report.Add(model.OpColumnDropped, combinedCardColumn, "split_into_columns", 1)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
