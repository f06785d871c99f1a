// Package reqreply correlates asynchronous replies with the requests that
// caused them.
//
// A Processor registers a Promise under the request id, pushes that id onto
// the request's ReplyTo stack, and hands the request to an outbound
// endpoint. Whatever eventually answers sends a reply event carrying the
// same ReplyTo stack to Processor.Channel, which pops the top id and fulfils
// the waiting Promise:
//
//	proc, _ := reqreply.NewProcessor(outbound, reqreply.WithTimeout(5*time.Second))
//	reply, err := proc.Process(ctx, request)
//
// Correlation entries are removed as soon as their Promise settles, whether
// by reply, rejection, or timeout.
package reqreply
