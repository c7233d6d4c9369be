package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	"github.com/mamadbah2/farmdesk/internal/service/masterdata"
	"github.com/mamadbah2/farmdesk/internal/service/reporting"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: livestock 3", bookkeeping.ErrNotFound), http.StatusNotFound},
		{reporting.ErrBatchNotFound, http.StatusNotFound},
		{datatable.ErrUnknownTable, http.StatusNotFound},
		{access.ErrForbidden, http.StatusForbidden},
		{bookkeeping.ErrFarmNotAllowed, http.StatusForbidden},
		{datatable.ErrForbidden, http.StatusForbidden},
		{masterdata.ErrConflict, http.StatusConflict},
		{bookkeeping.ErrDuplicateRecording, http.StatusConflict},
		{bookkeeping.ErrCoopUnavailable, http.StatusConflict},
		{bookkeeping.ErrBatchClosed, http.StatusConflict},
		{bookkeeping.ErrInsufficientStock, http.StatusUnprocessableEntity},
		{bookkeeping.ErrInsufficientPopulation, http.StatusUnprocessableEntity},
		{bookkeeping.ErrInvalidInput, http.StatusUnprocessableEntity},
		{masterdata.ErrInvalidInput, http.StatusUnprocessableEntity},
		{datatable.ErrBadRequest, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
