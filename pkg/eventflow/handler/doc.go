// Package handler provides terminal endpoints and endpoint wrappers: a Null
// handler, handlers that store events or run tasks, a composite error
// handler, and a retrying wrapper.
//
// Every handler embeds lifecycle.Service and reports Received when called,
// Processed once its work is done, and Error on failure before returning it.
package handler
