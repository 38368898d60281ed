package scorer

// systemPrompt frames the scoring call.
const systemPrompt = "You are a B2B lead qualification analyst. You score companies strictly " +
	"against the rubric you are given and always answer in the exact format requested."

// rubricPrompt is the scoring instruction. %s is the company name and the
// second %s is the formatted evidence.
const rubricPrompt = `Score the company "%s" using only the research below.

Research:
%s

Scoring rubric (maximum 90 points):

1. Revenue (/20)
   - Above $1B: 20
   - $500M to $1B: 15
   - $100M to $500M: 10
   - $10M to $100M: 5
   - Below $10M or unknown: 0

2. Employee size (/10)
   - More than 5,000: 10
   - 1,000 to 5,000: 7
   - 200 to 999: 5
   - 50 to 199: 3
   - Fewer than 50 or unknown: 0

3. Years in business (/10)
   - More than 20 years: 10
   - 10 to 20 years: 7
   - 5 to 9 years: 5
   - 2 to 4 years: 3
   - Less than 2 years or unknown: 0

4. Funding (/15)
   - Latest round above $100M: 15
   - $50M to $100M: 10
   - $10M to $50M: 5
   - Below $10M: 2
   - No funding found: 0

5. Fortune 500 (/10)
   - Listed: 10
   - Not listed: 0

6. Fortune 100 (/10)
   - Listed: 10
   - Not listed: 0

7. Clients (/15)
   - Well-known enterprise clients across several industries: 15
   - Notable clients within one industry: 10
   - Some named clients: 5
   - No clients found: 0

Respond in exactly this format and nothing else:
Revenue: <points>/20
Employee Size: <points>/10
Years in Business: <points>/10
Funding: <points>/15
Fortune 500: <points>/10
Fortune 100: <points>/10
Clients: <points>/15
Total Score: <points>/90
Reason: <two or three sentences explaining the score>`
