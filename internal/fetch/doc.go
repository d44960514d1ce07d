// Package fetch downloads a model file over HTTP with resume support.
//
// A download starts with a HEAD request to learn the remote size. A local
// file that already has that size is left alone; a shorter one is resumed
// with "Range: bytes=N-" and appended to. When the server ignores the range
// and answers 200, the file is rewritten from the start.
//
// Transient failures (connection refused, resets, bodies cut short, 5xx) are
// retried with exponential backoff, and every retry resumes from the bytes
// already on disk. The finished file is checked against the remote size and
// the optional expected size.
//
//	client := fetch.NewClient()
//	client.Token = os.Getenv("HF_TOKEN")
//	res, err := client.Download(ctx, fetch.Request{
//	    URL:          "http://192.168.1.20:8001/gemma-3n-E4B-it-int4.task",
//	    Output:       "assets/models/gemma-3n-E4B-it-int4.task",
//	    ExpectedSize: 4405655031,
//	}, nil)
package fetch
