package planner

// DefaultTemplates are the enrichment questions asked for every lead, in
// order. Later questions rely on the conversation built by earlier ones.
var DefaultTemplates = []Template{
	{
		Key:  "description",
		Text: "What does {company} ({domain}) do? Describe the company, its products and services in 2-3 sentences.",
	},
	{
		Key:  "website",
		Text: "What is the official website of {company}? Reply with only the URL, without additional explanation.",
	},
	{
		Key: "revenue",
		Text: "What is the annual revenue of {company} ({domain})? List each revenue figure you find with its year, " +
			"and cite the source for every figure on the same line. If no figure is available, reply with \"Unknown\".",
	},
	{
		Key:  "employees",
		Text: "How many employees does {company} have? Reply with only the number of employees, without additional explanation.",
	},
	{
		Key:  "years_in_business",
		Text: "How many years has {company} been in business? Reply with only the number of years, without additional explanation.",
	},
	{
		Key: "funding",
		Text: "What is the latest funding round raised by {company}? Answer as a bulleted list with the amount and the date " +
			"of the round. If the company has not raised funding, reply with \"None\".",
	},
	{
		Key: "fortune_500",
		Text: "Is {company} a Fortune 500 company? Start your answer with \"Yes\" or \"No\", " +
			"then give the rank and year if it is listed.",
	},
	{
		Key: "fortune_100",
		Text: "Is {company} a Fortune 100 company? Start your answer with \"Yes\" or \"No\", " +
			"then give the rank and year if it is listed.",
	},
	{
		Key:  "clients",
		Text: "Who are the main clients of {company}, and which industries do they serve? Answer as a bulleted list.",
	},
	{
		Key:  "industry",
		Text: "Which industry does {company} ({domain}) belong to? Reply with only the industry name, without additional explanation.",
	},
	{
		Key:  "linkedin",
		Text: "What is the LinkedIn company page of {company} ({domain})? Reply with only the link, without additional explanation.",
	},
}
