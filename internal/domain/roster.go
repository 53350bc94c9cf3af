package domain

// SeasonRoster is the cast loaded by the seed command and admin endpoint
var SeasonRoster = []SeedHouseguest{
	{Slug: "adrian-rocha", FirstName: "Adrian", LastName: "Rocha"},
	{Slug: "amy-bingham", FirstName: "Amy", LastName: "Bingham"},
	{Slug: "ashley-hollis", FirstName: "Ashley", LastName: "Hollis"},
	{Slug: "ava-pearl", FirstName: "Ava", LastName: "Pearl"},
	{Slug: "cliffton-williams", FirstName: "Cliffton", LastName: "Williams"},
	{Slug: "isaiah-frederich", FirstName: "Isaiah", LastName: "Frederich"},
	{Slug: "jimmy-heagerty", FirstName: "Jimmy", LastName: "Heagerty"},
	{Slug: "katherine-woodman", FirstName: "Katherine", LastName: "Woodman"},
	{Slug: "keanu-soto", FirstName: "Keanu", LastName: "Soto"},
	{Slug: "kelley-jorgensen", FirstName: "Kelley", LastName: "Jorgensen"},
	{Slug: "lauren-domingue", FirstName: "Lauren", LastName: "Domingue"},
	{Slug: "mickey-lee", FirstName: "Mickey", LastName: "Lee"},
	{Slug: "morgan-pope", FirstName: "Morgan", LastName: "Pope"},
	{Slug: "rylie-jeffries", FirstName: "Rylie", LastName: "Jeffries"},
	{Slug: "vince-panaro", FirstName: "Vince", LastName: "Panaro"},
	{Slug: "zach-cornell", FirstName: "Zach", LastName: "Cornell"},
	{Slug: "rachel-reilly", FirstName: "Rachel", LastName: "Reilly"},
}
