package core

import "errors"

// Firmware core errors. The interrupt paths log and drop on these; they are
// returned so callers and tests can tell the cases apart.
var (
	// ErrCommandTooLong indicates a record payload above the maximum size.
	ErrCommandTooLong = errors.New("command payload too long")

	// ErrCommandMisaligned indicates a record length that is not a multiple of 4.
	ErrCommandMisaligned = errors.New("command length not a multiple of 4")

	// ErrNoResponseSlot indicates the response ring handed out no slot.
	ErrNoResponseSlot = errors.New("out of response buffers")

	// ErrEmptyBatch indicates records were pending but none fit the block.
	ErrEmptyBatch = errors.New("attempted to send an empty response block")

	// ErrBatchBusy indicates the response block is still owned by the transfer layer.
	ErrBatchBusy = errors.New("response block in flight")

	// ErrHalted indicates the device reached a terminal state.
	ErrHalted = errors.New("device halted")

	// ErrUnknownCommand indicates no handler is registered for a command type.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidCommand indicates a command with an unexpected payload.
	ErrInvalidCommand = errors.New("invalid command payload")
)
