package billing

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
)

func TestEffectiveStatus(t *testing.T) {
	today := core.NewDate(2025, time.March, 15)
	tests := []struct {
		status Status
		due    core.Date
		want   Status
	}{
		{status: StatusPending, due: today.AddDays(-1), want: StatusOverdue},
		{status: StatusPending, due: today, want: StatusPending},
		{status: StatusPending, due: today.AddDays(1), want: StatusPending},
		{status: StatusOverdue, due: today.AddDays(1), want: StatusOverdue},
		{status: StatusPaid, due: today.AddDays(-30), want: StatusPaid},
		{status: StatusCancelled, due: today.AddDays(-30), want: StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.status)+" due "+tt.due.String(), func(t *testing.T) {
			p := Payment{Status: tt.status, DueDate: tt.due}
			assert.Equal(t, tt.want, p.EffectiveStatus(today))
		})
	}
}

func TestPayment_MarkPaid(t *testing.T) {
	paidAt := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.FixedZone("CAT", 2*3600))

	for _, from := range []Status{StatusPending, StatusOverdue} {
		t.Run(string(from), func(t *testing.T) {
			p := Payment{Status: from}
			require.NoError(t, p.MarkPaid(MethodMobileMoney, null.StringFrom("TX-42"), paidAt))
			assert.Equal(t, StatusPaid, p.Status)
			assert.True(t, p.PaidDate.Valid)
			assert.True(t, paidAt.Equal(p.PaidDate.Time))
			assert.Equal(t, time.UTC, p.PaidDate.Time.Location())
			assert.Equal(t, "MOBILE_MONEY", p.Method.String)
			assert.Equal(t, "TX-42", p.Reference.String)
		})
	}
}

func TestPayment_TerminalStatuses(t *testing.T) {
	for _, from := range []Status{StatusPaid, StatusCancelled} {
		t.Run(string(from), func(t *testing.T) {
			p := Payment{Status: from}

			err := p.MarkPaid(MethodCash, null.String{}, time.Now())
			var trErr *TransitionError
			require.True(t, errors.As(err, &trErr), "got %v", err)
			assert.Equal(t, from, trErr.From)

			require.Error(t, p.Cancel())
			assert.Equal(t, from, p.Status)
			assert.True(t, IsDomainError(err))
		})
	}
}

func TestPayment_Cancel(t *testing.T) {
	p := Payment{Status: StatusPending}
	require.NoError(t, p.Cancel())
	assert.Equal(t, StatusCancelled, p.Status)
	assert.False(t, p.PaidDate.Valid)
}
