package filter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = NewValidator()
	})
	return validate
}

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// AsValidationError converts the first validator failure in err into a *ValidationError.
// Other errors are returned unchanged.
func AsValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:  fieldPath(fe.Namespace()),
			Reason: fmt.Sprintf("failed %q rule (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return err
}

// Validate checks the required fields, enum values and period labels of f. Compile does
// not call it; callers validate once when the filter arrives from outside.
func (f AnalyticsFilter) Validate() error {
	if err := structValidator().Struct(f); err != nil {
		return AsValidationError(err)
	}

	rp := f.ReportPeriod
	sel := rp.Selection
	if sel.Interval == nil && len(sel.Dates) == 0 {
		return &ValidationError{Field: "report_period.selection", Reason: "interval or dates required"}
	}
	if iv := sel.Interval; iv != nil {
		start, err := ParsePeriod(rp.Type, iv.Start)
		if err != nil {
			return &ValidationError{Field: "report_period.selection.interval.start", Reason: err.Error()}
		}
		end, err := ParsePeriod(rp.Type, iv.End)
		if err != nil {
			return &ValidationError{Field: "report_period.selection.interval.end", Reason: err.Error()}
		}
		if start.key(rp.Type) > end.key(rp.Type) {
			return &ValidationError{Field: "report_period.selection.interval", Reason: "start after end"}
		}
	} else {
		for i, label := range sel.Dates {
			if _, err := ParsePeriod(rp.Type, label); err != nil {
				return &ValidationError{Field: fmt.Sprintf("report_period.selection.dates[%d]", i), Reason: err.Error()}
			}
		}
	}

	if f.MinPopulation != nil && f.MaxPopulation != nil && *f.MinPopulation > *f.MaxPopulation {
		return &ValidationError{Field: "min_population", Reason: "greater than max_population"}
	}
	if f.ItemMinAmount != nil && f.ItemMaxAmount != nil && *f.ItemMinAmount > *f.ItemMaxAmount {
		return &ValidationError{Field: "item_min_amount", Reason: "greater than item_max_amount"}
	}
	if f.AggregateMinAmount != nil && f.AggregateMaxAmount != nil && *f.AggregateMinAmount > *f.AggregateMaxAmount {
		return &ValidationError{Field: "aggregate_min_amount", Reason: "greater than aggregate_max_amount"}
	}
	return nil
}

// fieldPath turns "AnalyticsFilter.report_period.type" into "report_period.type".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
