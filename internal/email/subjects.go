package email

const (
	subjectSaleAlertFmt        = "🚨 Nueva venta en %s"
	subjectAdvisorAlertFmt     = "🙋 Cliente pide asesor en %s"
	subjectReservationAlertFmt = "📅 Nueva reserva en %s"
)
