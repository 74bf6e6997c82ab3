package rotator

import "alpacapi/pkg/alpaca"

const (
	cmdCanReverse = iota
	cmdIsMoving
	cmdMechanicalPosition
	cmdPosition
	cmdReverse
	cmdStepSize
	cmdTargetPosition
	cmdHalt
	cmdMove
	cmdMoveAbsolute
	cmdMoveMechanical
	cmdSync
	cmdExtras
	cmdStep
	cmdStepAbsolute
)

var commands = alpaca.NewCommandTable(
	alpaca.CommandEntry{Name: "canreverse", ID: cmdCanReverse, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "ismoving", ID: cmdIsMoving, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "mechanicalposition", ID: cmdMechanicalPosition, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "position", ID: cmdPosition, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "reverse", ID: cmdReverse, Verb: alpaca.VerbBoth},
	alpaca.CommandEntry{Name: "stepsize", ID: cmdStepSize, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "targetposition", ID: cmdTargetPosition, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "halt", ID: cmdHalt, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "move", ID: cmdMove, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "moveabsolute", ID: cmdMoveAbsolute, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "movemechanical", ID: cmdMoveMechanical, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "sync", ID: cmdSync, Verb: alpaca.VerbPut},

	// Non-standard extensions
	alpaca.CommandEntry{Name: "--extras", ID: cmdExtras, Verb: alpaca.VerbGet},
	alpaca.CommandEntry{Name: "step", ID: cmdStep, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{Name: "stepabsolute", ID: cmdStepAbsolute, Verb: alpaca.VerbPut},
	alpaca.CommandEntry{},
)
