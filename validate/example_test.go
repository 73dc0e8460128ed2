package validate_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/chatguard/validate"
)

func ExampleRoomID() {
	fmt.Println(validate.RoomID("  GENERAL  ").Sanitized)
	fmt.Println(validate.RoomID("room;rm -rf").Error)
	// Output:
	// GENERAL
	// Room ID contains invalid characters
}

func ExampleLimit() {
	fmt.Println(validate.Limit(nil, 1, 100, 50))
	fmt.Println(validate.Limit(1000, 1, 100, 50))
	fmt.Println(validate.Limit("7.9", 1, 100, 50))
	// Output:
	// 50
	// 100
	// 7
}

func ExampleSchema_Strict() {
	_, err := validate.BaseResponseSchema.Strict(context.Background(), []byte(`{"error":"boom"}`))
	fmt.Println(err != nil)
	// Output:
	// true
}
