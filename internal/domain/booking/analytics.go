package booking

// Analytics summarises a set of bookings.
type Analytics struct {
	TotalBookings       int64 `json:"total_bookings"`
	CompletedBookings   int64 `json:"completed_bookings"`
	CancelledBookings   int64 `json:"cancelled_bookings"`
	TotalRevenue        int64 `json:"total_revenue"`
	AverageBookingValue int64 `json:"average_booking_value"`
}

// Summarize folds bookings into Analytics. Revenue is the sum of snapshot
// totals over every booking in the set; the average is rounded half-up.
func Summarize(bookings []*Booking) Analytics {
	var a Analytics
	for _, b := range bookings {
		a.TotalBookings++
		a.TotalRevenue += b.pricing.Total
		switch b.status {
		case StatusCompleted:
			a.CompletedBookings++
		case StatusCancelled:
			a.CancelledBookings++
		}
	}
	if a.TotalBookings > 0 {
		a.AverageBookingValue = (a.TotalRevenue*2 + a.TotalBookings) / (a.TotalBookings * 2)
	}
	return a
}
