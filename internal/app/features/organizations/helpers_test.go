package organizations_test

import "time"

func testNow() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
