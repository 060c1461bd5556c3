package components

import (
	"boxoffice/internal/pkg/clock"
	"boxoffice/internal/usecase/commands"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		commands.NewAvailabilityChecker,
		commands.NewOrderTransitions,
		commands.NewOrderChanges,
		commands.NewExtendExpiry,
		commands.NewOrderDetails,
		commands.NewInvoiceCommands,
	),
)
