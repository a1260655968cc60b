package repository

import "github.com/dailyrent/service-booking/internal/scheduler"

// Models lists every GORM model owned by this service, for AutoMigrate in
// development and tests. Production schemas come from the SQL migrations.
func Models() []interface{} {
	return []interface{}{
		&PropertyModel{},
		&BookingModel{},
		&PaymentModel{},
		&CompensationRequestModel{},
		&LedgerEntryModel{},
		&UserBalanceModel{},
		&scheduler.TaskModel{},
	}
}
