package usecase

import "TourScanner/internal/domain"

// Normalizer maps source-specific raw items onto Records.
type Normalizer struct {
	fields domain.FieldMap
}

// NewNormalizer uses the default keys for any field left empty in fields.
func NewNormalizer(fields domain.FieldMap) Normalizer {
	return Normalizer{fields: fields.WithDefaults()}
}

// Normalize validates structure only; values are copied verbatim.
func (n Normalizer) Normalize(item domain.RawItem) (domain.Record, error) {
	subject, ok := item[n.fields.Subject]
	if !ok || subject == "" {
		return domain.Record{}, &domain.MalformedRecordError{Field: "subject"}
	}
	location, ok := item[n.fields.Location]
	if !ok || location == "" {
		return domain.Record{}, &domain.MalformedRecordError{Field: "location"}
	}
	occursAt, ok := item[n.fields.OccursAt]
	if !ok || occursAt == "" {
		return domain.Record{}, &domain.MalformedRecordError{Field: "occursAt"}
	}

	return domain.Record{
		Subject:      subject,
		Location:     location,
		OccursAt:     occursAt,
		ReferenceURL: item[n.fields.ReferenceURL],
	}, nil
}
