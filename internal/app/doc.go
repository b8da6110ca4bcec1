// Package app composes the investment platform services into a running
// application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Users and OTP codes
//	│   ├── project/        # Projects and investment models
//	│   └── investment/     # Investments and purchase drafts
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # UserStore, ProjectStore, InvestmentStore, ...
//	│   ├── memory/         # In-memory implementation for tests and demos
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic (auth, projects, investments, ...)
//	├── httpapi/            # HTTP handlers, sessions, and audit trail
//	├── system/             # Lifecycle management for background services
//	└── metrics/            # Prometheus metrics
//
// Services receive store interfaces and never touch SQL directly; handlers
// translate service errors to HTTP statuses and never contain business
// rules. Background work (the maturity sweep) registers with the system
// manager so startup and shutdown stay ordered.
package app
