package logger

// Component-specific loggers

// DB returns a logger for store and query operations
func DB() Logger {
	return WithField("component", "db")
}

// Migration returns a logger for schema migrations
func Migration() Logger {
	return WithField("component", "migration")
}

// Atlas returns a logger for schema inspection
func Atlas() Logger {
	return WithField("component", "atlas")
}

// CLI returns a logger for CLI operations
func CLI() Logger {
	return WithField("component", "cli")
}

// Tasks returns a logger for the task lifecycle
func Tasks() Logger {
	return WithField("component", "tasks")
}

// Notify returns a logger for notification dispatch and sweeps
func Notify() Logger {
	return WithField("component", "notify")
}

// Jobs returns a logger for the job registry
func Jobs() Logger {
	return WithField("component", "jobs")
}

// Users returns a logger for account and team operations
func Users() Logger {
	return WithField("component", "users")
}
