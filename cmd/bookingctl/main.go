// Command bookingctl administers a booking engine store directly: room
// catalog import and listing, availability lookups, revenue reports and
// staff token issuance. It reads the same environment as the server.
package main

func main() {
	Execute()
}
