package models

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&UnitSetting{},
		&User{},
		&Customer{},
		&Room{},
		&Booking{},
		&Bill{},
		&Settlement{},
		&Counter{},
	}
}
