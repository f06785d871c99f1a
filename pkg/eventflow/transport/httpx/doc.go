// Package httpx sends events over HTTP.
//
// A Service turns an event into one HTTP request: the URL comes from a
// static URL or a URLProvider, headers from a HeadersProvider, and the body
// from a Serializer (JSON for POST and PUT, none for GET and DELETE unless
// configured). Responses outside 2xx fail with *errors.HTTPError, which
// errors.Categorize treats as transient for 429 and 5xx.
//
// Channel delivers events and discards the response. Processor turns the
// response back into an event with a Deserializer.
package httpx
