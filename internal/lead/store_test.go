package lead

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestStore_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(pgxmock.AnyArg(), "ChIJ-abc", "The Golden Fork", "12 High St", "51.5, -0.12",
			"https://goldenfork.example", "+44 20 1234 5678", "London", "United Kingdom",
			"Restaurant", "GBP", "ops@example.com", "Places API", "Unverified").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := store.Insert(context.Background(), &Lead{
		ExternalID:   "ChIJ-abc",
		Name:         "The Golden Fork",
		Address:      "12 High St",
		Location:     "51.5, -0.12",
		Website:      "https://goldenfork.example",
		Phone:        "+44 20 1234 5678",
		City:         "London",
		Country:      "United Kingdom",
		BusinessType: "Restaurant",
		Currency:     "GBP",
		RecordOwner:  "ops@example.com",
		Source:       "Places API",
	})

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_DuplicateExternalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	// ON CONFLICT DO NOTHING reports zero affected rows for duplicates.
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.Insert(context.Background(), &Lead{ExternalID: "ChIJ-abc", Name: "Dup"})

	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	created := time.Now()
	mock.ExpectQuery(`SELECT id, external_id, name`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "external_id", "name", "address", "location", "website", "phone",
			"city", "country", "business_type", "currency", "record_owner", "source",
			"email", "email_status", "email_source", "linkedin_url", "facebook_url",
			"created_at", "last_modified",
		}).AddRow(
			"lead-1", "ChIJ-abc", "The Golden Fork", "12 High St", "51.5, -0.12",
			strPtr("https://goldenfork.example"), (*string)(nil),
			strPtr("London"), strPtr("United Kingdom"), "Restaurant", (*string)(nil), (*string)(nil), "Places API",
			(*string)(nil), "Unverified", (*string)(nil), (*string)(nil), (*string)(nil),
			created, (*time.Time)(nil),
		))

	l, err := store.Get(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.Equal(t, "The Golden Fork", l.Name)
	assert.Equal(t, "https://goldenfork.example", l.Website)
	assert.Empty(t, l.Phone)
	assert.Equal(t, "London", l.City)
	assert.False(t, l.EmailQualifies())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery(`SELECT id, external_id, name`).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateEnrichment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec(`UPDATE leads`).
		WithArgs("lead-1", "info@goldenfork.example", "Valid", "hunter").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateEnrichment(context.Background(), "lead-1", "info@goldenfork.example", EmailValid, "hunter")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateSocial(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec(`UPDATE leads`).
		WithArgs("lead-1", "https://linkedin.com/in/jane", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateSocial(context.Background(), "lead-1", "https://linkedin.com/in/jane", "")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateSocial_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec(`UPDATE leads`).
		WithArgs("ghost", "", "https://facebook.com/ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateSocial(context.Background(), "ghost", "", "https://facebook.com/ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SearchRecords(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec(`INSERT INTO search_records`).
		WithArgs(pgxmock.AnyArg(), "coordinates", "51.5074,-0.1278 r=500").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.CreateSearch(context.Background(), "coordinates", "51.5074,-0.1278 r=500")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	mock.ExpectExec(`UPDATE search_records`).
		WithArgs(id, 10, 25, SearchInProcess).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateSearchProgress(context.Background(), id, 10, 25, SearchInProcess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailQualifies(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"info@example.com", true},
		{"", false},
		{"   ", false},
		{"not_found", false},
		{"Not Found", false},
	}
	for _, tt := range tests {
		l := &Lead{Email: tt.email}
		assert.Equal(t, tt.want, l.EmailQualifies(), "email=%q", tt.email)
	}
}
