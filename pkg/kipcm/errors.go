package kipcm

import "errors"

var (
	// ErrFactoryNotFound indicates IPCCreate named a factory that was
	// never registered.
	ErrFactoryNotFound = errors.New("kipcm: no such IPCP factory")

	// ErrFactoryExists indicates RegisterFactory was called twice for
	// the same name.
	ErrFactoryExists = errors.New("kipcm: factory already registered")

	// ErrIPCPNotFound indicates an operation named an ipc-process-id
	// with no instance bound to it.
	ErrIPCPNotFound = errors.New("kipcm: no such IPC process")

	// ErrIPCPExists indicates IPCCreate was called twice for the same
	// ipc-process-id.
	ErrIPCPExists = errors.New("kipcm: IPC process already exists")
)
