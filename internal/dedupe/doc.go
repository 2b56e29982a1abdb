// Package dedupe suppresses webhook redeliveries. The provider retries a
// delivery it did not see acknowledged in time, so the same message ID can
// arrive more than once; a Window remembers recently stored IDs for a TTL.
package dedupe
