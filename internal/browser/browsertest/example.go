package browsertest

// ExampleDomainURL is where ExampleDomain is usually served.
const ExampleDomainURL = "https://example.com"

const exampleDomainHTML = `<!doctype html>
<html>
<head>
<title>Example Domain</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{background:#eee;width:60vw;margin:15vh auto;font-family:system-ui,sans-serif}</style>
</head>
<body><div><h1>Example Domain</h1><p>This domain is for use in documentation examples without needing permission. Avoid use in operations.</p><p><a href="https://iana.org/domains/example">Learn more</a></p></div></body>
</html>`

// ExampleDomain returns the example.com landing page.
func ExampleDomain() Page {
	return Page{HTML: exampleDomainHTML}
}
