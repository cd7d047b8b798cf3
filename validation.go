// validation.go
// -------------
// Default structural validator for normalized recommendation requests.
// Shape normalization (parsing, trimming, type coercion) is an upstream
// concern; this only checks that the filter set is usable.
package cinebridge

// FilterValidator is the default RequestValidator: at least one filter
// dimension must be present and every range must be ordered.
type FilterValidator struct{}

func (FilterValidator) Validate(req *RecommendationRequest) error {
	if req == nil {
		return NewValidationError("request is required")
	}
	if !req.HasFilters() {
		return NewValidationError("at least one filter (genres, moods, runtime, releaseYear) is required")
	}
	if rt := req.Runtime; rt != nil && rt.Min > 0 && rt.Max > 0 && rt.Min > rt.Max {
		return NewValidationError("runtime.min must not exceed runtime.max")
	}
	if yr := req.ReleaseYear; yr != nil && yr.From > 0 && yr.To > 0 && yr.From > yr.To {
		return NewValidationError("releaseYear.from must not exceed releaseYear.to")
	}
	if req.Limit < 0 {
		return NewValidationError("limit must not be negative")
	}
	return nil
}
