package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type guest struct {
	FirstName string `json:"firstName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

type redeemReq struct {
	CoursePath string   `json:"coursePath" validate:"required"`
	Dates      []uint64 `json:"selectedDates" validate:"dive,gt=0"`
	Lang       string   `json:"currentLang" validate:"omitempty,oneof=en de"`
	Guest      *guest   `json:"guestInfo"`
}

func TestValidate(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&redeemReq{CoursePath: "/pottery", Dates: []uint64{1, 2}, Lang: "de"}))

	err := v.Validate(&redeemReq{Lang: "fr", Dates: []uint64{0}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "coursePath is required")
	require.Contains(t, err.Error(), "currentLang must be one of [en de]")
	require.Contains(t, err.Error(), "selectedDates[0] must be greater than 0")

	err = v.Validate(&redeemReq{CoursePath: "/pottery", Guest: &guest{FirstName: "Ann", Email: "nope"}})
	require.EqualError(t, err, "guestInfo.email must be a valid email")
}
