// Package instagram holds what the harvester knows about the target service:
// its URLs and API constants, the web_profile_info response model, account
// identifier normalization, and a session-aware HTTP client for page and API
// requests.
//
// Account lists are parsed with a Normalizer:
//
//	list, err := instagram.DefaultNormalizer.ParseAccountList(file)
//	for _, account := range list.Accounts {
//		fmt.Println(instagram.ProfileURL(account))
//	}
package instagram
