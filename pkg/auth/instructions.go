package auth

import (
	"fmt"
	"strings"
)

// ShowSessionExtractionGuide prints how to copy the session cookie out of a
// logged-in browser.
func ShowSessionExtractionGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("SESSION COOKIE GUIDE")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
	fmt.Println("Private and rate-limited profiles need a logged-in session.")
	fmt.Println()
	fmt.Println("1. Log in at https://www.instagram.com in your browser.")
	fmt.Println("2. Open Developer Tools (F12, or Cmd+Option+I on Mac).")
	fmt.Println("3. Application (Chrome) or Storage (Firefox) > Cookies > https://www.instagram.com")
	fmt.Println("4. Copy the value of the 'sessionid' cookie.")
	fmt.Println()
	fmt.Println("Then either:")
	fmt.Println("   • run `igharvest auth set` and paste it,")
	fmt.Println("   • export IGHARVEST_SESSION_ID=<value>, or")
	fmt.Println("   • save it (or a whole Cookie header) in IG_SESSIONID.txt.")
	fmt.Println()
	fmt.Printf("The value must be at least %d characters. It grants full access to\n", MinSessionLength)
	fmt.Println("the account, so never share it; a secondary account is recommended.")
	fmt.Println(strings.Repeat("=", 72))
}
