// Package cmcloud talks to the CM Cloud photo backup service.
//
// A Session holds the cookie jar that login fills. Three components run on
// top of it: the Paginator lists the catalogue, the Resolver turns a
// (date group, content hash) pair into a download URL and the Fetcher
// downloads the image and checks that it really is a JPEG.
//
// Every remote step reports success through a "ret" code in its JSON body.
// A non-zero code, or an image that is not a JPEG, is treated as an expired
// session: the step logs in again and is retried, nine attempts in all. A
// non-200 status, a transport error or an unreadable body aborts at once.
//
// Usage:
//
//	client, err := cmcloud.NewClient(cfg, email, password, store, log)
//	if err != nil {
//	    return err
//	}
//
//	for record, err := range client.Catalogue.Records(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    url, err := client.Resolver.Resolve(ctx, record.DateGroup, record.ContentHash)
//	    ...
//	}
package cmcloud
