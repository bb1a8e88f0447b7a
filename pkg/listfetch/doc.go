// Package listfetch coordinates page and filter changes of one list with
// an asynchronous page fetch.
//
// Every fetch is tagged with a sequence number when it is issued. A result
// is applied only if its sequence is still the latest one, so a slow
// response for page 2 can never overwrite a fast response for page 3 that
// was requested after it. Superseded fetches are not cancelled; their
// results are dropped on arrival.
//
//	ctrl := listfetch.New[client.Article](articles, listfetch.Config{List: "articles"})
//	defer ctrl.Close()
//
//	ctrl.SetParams(2, pagination.Filters{"tag": pagination.Value("go")})
//	_ = ctrl.Wait(ctx)
//	snap := ctrl.State() // Items, Loading, Err, Pagination
//
// Fetch errors are never returned to the caller. They are classified as
// NetworkError, HTTPError or UnknownError and stored in the snapshot; the
// caller decides whether to Retry.
package listfetch
