// Package consentservice produces consent messages for calls to registered
// operations.
//
// An Operation pairs a method name with an argument decoder and a formatter
// describing the call's effect. The Service routes a request to the matching
// operation and hands the resulting Description to Compose, which renders it
// for the caller's display preference:
//
//	svc := consentservice.New() // serves "greet"
//	info, err := svc.ConsentMessage(ctx, &consent.ConsentMessageRequest{
//		Method: "greet",
//		Arg:    arg, // Candid encoded text
//		UserPreferences: consent.ConsentMessageSpec{
//			DeviceSpec: consent.NewLineDisplay(20, 3),
//		},
//	})
//
// Failures are returned as *consent.Error values. Output depends only on the
// request, which is what allows WithCache to memoize it.
package consentservice
