// Package bus implements the in-process command and query buses.
//
// A Bus maps a message type to exactly one Handler and runs every dispatch through a middleware
// chain; the first registered middleware is the outermost one. Two flavors exist:
//
//   - Bus (New): handler factories are invoked once at construction against a container.
//   - TypedBus (NewCommandBusBuilder, NewQueryBusBuilder): the handler factory receives a typed
//     dependency struct resolved from the execution context's container on every dispatch.
//
// Handler settings (transactional, retry) travel with the context.Context handed to middlewares,
// see SettingsFromContext.
package bus
