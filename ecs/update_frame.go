package ecs

// UpdateFrame is what a system sees during one Execute.
type UpdateFrame struct {
	DeltaTime float64
	Commands  *Commands
	World     *World

	// LastRun and ThisRun are the executing system's change detection ticks.
	LastRun Tick
	ThisRun Tick
}

func newUpdateFrame(dt float64, world *World) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  NewCommands(),
		World:     world,
	}
}
