// Package request sends single HTTP requests and reports their outcome as a
// uniform [Status].
//
// # Outcomes
//
// Every exchange ends in one of three shapes, tagged by [Kind]:
//
//   - KindSuccess: a 2xx response was received
//   - KindTransport: no response (timeout, cancellation, connection error)
//   - KindStatus: a response with any other status code
//
// Transport and status failures are data, not errors. The error return of
// [Send], [SendWith] and [SendJSON] is reserved for problems the caller has
// to fix: an unresolvable URI, invalid input, a body that cannot be decoded,
// or an unexpected error from a custom [Doer].
//
// For status failures the reason is the server's response body, flattened to
// one line, unless the code is 500 or the body is empty; then it is the
// standard status text.
//
// # Conversion
//
// [SendWith] hands the response to a [Handler]; [SendJSON] decodes the body
// as JSON. By default only successful responses are converted. Pass
// [ParseOnFailure] to convert error bodies as well.
//
// # URIs
//
// A [Client] may carry a base address. Request URIs are resolved against it
// per RFC 3986; an empty URI targets the base itself. Without a base every
// URI must be absolute. The resolved URI is also the key used by package
// cached.
//
// # Usage
//
//	c, err := request.NewClient("https://api.example.com/v1/",
//	    request.WithTimeout(10*time.Second),
//	    request.WithLogger(logger),
//	)
//	res, err := request.GetJSON[User](ctx, c, "users/42")
//	if err != nil {
//	    return err
//	}
//	if !res.Status.Success {
//	    logger.Warn("lookup failed", "reason", res.Status)
//	}
package request
