package codegen

import (
	"fmt"
	"strings"

	"github.com/funnyzak/reqkit/pkg/request"
)

var templates = []Template{
	{ID: "curl", Name: "Shell - cURL", Language: "shell", noURL: `echo "` + NoURL + `"`, generate: curl},
	{ID: "go", Name: "Go", Language: "go", noURL: `fmt.Println("` + NoURL + `")`, generate: goClient},
	{ID: "python", Name: "Python - Requests", Language: "python", noURL: `print("` + NoURL + `")`, generate: python},
	{ID: "java", Name: "Java", Language: "java", noURL: `System.out.println("` + NoURL + `");`, generate: java},
	{ID: "cpp", Name: "C++", Language: "cpp", noURL: `std::cout << "` + NoURL + `" << std::endl;`, generate: cpp},
	{ID: "csharp", Name: "C#", Language: "csharp", noURL: `Console.WriteLine("` + NoURL + `");`, generate: csharp},
	{ID: "kotlin", Name: "Kotlin", Language: "kotlin", noURL: `println("` + NoURL + `")`, generate: kotlin},
	{ID: "php", Name: "PHP", Language: "php", noURL: `echo "` + NoURL + `";`, generate: php},
	{ID: "r", Name: "R", Language: "r", noURL: `print("` + NoURL + `")`, generate: rHttr},
	{ID: "ruby", Name: "Ruby", Language: "ruby", noURL: `puts "` + NoURL + `"`, generate: ruby},
}

func curl(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl --request %s \\\n  --url '%s'", req.Method, req.URL)
	for _, h := range headers {
		fmt.Fprintf(&b, " \\\n  --header '%s: %s'", h.key, escapeShell(h.value))
	}
	if hasBody(req) {
		fmt.Fprintf(&b, " \\\n  --data '%s'", escapeShell(req.Body))
	}
	return b.String()
}

func goClient(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	b.WriteString("package main\n\nimport (\n    \"fmt\"\n    \"net/http\"\n    \"strings\"\n)\n\nfunc main() {\n")
	if hasBody(req) {
		fmt.Fprintf(&b, "    payload := strings.NewReader(`%s`)\n", req.Body)
		fmt.Fprintf(&b, "    req, _ := http.NewRequest(\"%s\", \"%s\", payload)\n", req.Method, req.URL)
	} else {
		fmt.Fprintf(&b, "    req, _ := http.NewRequest(\"%s\", \"%s\", nil)\n", req.Method, req.URL)
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "    req.Header.Add(\"%s\", \"%s\")\n", h.key, escapeJSON(h.value))
	}
	b.WriteString("\n    res, _ := http.DefaultClient.Do(req)\n    defer res.Body.Close()\n\n    fmt.Println(\"Status:\", res.Status)\n}")
	return b.String()
}

func python(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "import requests\n\nurl = \"%s\"\n", req.URL)
	if len(headers) > 0 {
		fmt.Fprintf(&b, "headers = %s\n", jsonObject(headers))
	}
	if hasBody(req) {
		fmt.Fprintf(&b, "data = \"\"\"%s\"\"\"\n", req.Body)
	}
	fmt.Fprintf(&b, "\nresponse = requests.%s(url", strings.ToLower(req.Method))
	if len(headers) > 0 {
		b.WriteString(", headers=headers")
	}
	if hasBody(req) {
		b.WriteString(", data=data")
	}
	b.WriteString(")\n\nprint(\"Status Code:\", response.status_code)\nprint(\"Response:\", response.text)")
	return b.String()
}

func java(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	b.WriteString("import java.net.http.*;\nimport java.net.URI;\n\npublic class HttpRequest {\n    public static void main(String[] args) throws Exception {\n        HttpClient client = HttpClient.newHttpClient();\n\n")
	b.WriteString("        HttpRequest.Builder requestBuilder = HttpRequest.newBuilder()\n")
	fmt.Fprintf(&b, "            .uri(URI.create(\"%s\"))\n", req.URL)
	if hasBody(req) {
		fmt.Fprintf(&b, "            .method(\"%s\", HttpRequest.BodyPublishers.ofString(\"%s\"));\n", req.Method, escapeJSON(req.Body))
	} else {
		fmt.Fprintf(&b, "            .method(\"%s\", HttpRequest.BodyPublishers.noBody());\n", req.Method)
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "        requestBuilder.header(\"%s\", \"%s\");\n", h.key, escapeJSON(h.value))
	}
	b.WriteString("\n        HttpRequest request = requestBuilder.build();\n        HttpResponse<String> response = client.send(request, HttpResponse.BodyHandlers.ofString());\n\n        System.out.println(\"Status: \" + response.statusCode());\n        System.out.println(\"Response: \" + response.body());\n    }\n}")
	return b.String()
}

func cpp(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	b.WriteString("#include <iostream>\n#include <curl/curl.h>\n\nint main() {\n    CURL *curl;\n    CURLcode res;\n\n    curl = curl_easy_init();\n    if(curl) {\n")
	fmt.Fprintf(&b, "        curl_easy_setopt(curl, CURLOPT_URL, \"%s\");\n", req.URL)
	fmt.Fprintf(&b, "        curl_easy_setopt(curl, CURLOPT_CUSTOMREQUEST, \"%s\");\n", req.Method)
	if hasBody(req) {
		fmt.Fprintf(&b, "        curl_easy_setopt(curl, CURLOPT_POSTFIELDS, R\"(%s)\");\n", req.Body)
	}
	if len(headers) > 0 {
		b.WriteString("\n        struct curl_slist *headers = NULL;\n")
		for _, h := range headers {
			fmt.Fprintf(&b, "        headers = curl_slist_append(headers, \"%s: %s\");\n", h.key, escapeJSON(h.value))
		}
		b.WriteString("        curl_easy_setopt(curl, CURLOPT_HTTPHEADER, headers);\n")
	}
	b.WriteString("\n        res = curl_easy_perform(curl);\n        curl_easy_cleanup(curl);\n    }\n    return 0;\n}")
	return b.String()
}

func csharp(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	b.WriteString("using System;\nusing System.Net.Http;\nusing System.Text;\nusing System.Threading.Tasks;\n\nclass Program {\n    static async Task Main() {\n        using var client = new HttpClient();\n\n")
	for _, h := range headers {
		fmt.Fprintf(&b, "        client.DefaultRequestHeaders.Add(\"%s\", \"%s\");\n", h.key, escapeJSON(h.value))
	}
	if hasBody(req) {
		fmt.Fprintf(&b, "        var content = new StringContent(\"%s\", Encoding.UTF8, \"application/json\");\n", escapeJSON(req.Body))
		fmt.Fprintf(&b, "        var response = await client.%sAsync(\"%s\", content);\n", titleMethod(req.Method), req.URL)
	} else {
		fmt.Fprintf(&b, "        var response = await client.%sAsync(\"%s\");\n", titleMethod(req.Method), req.URL)
	}
	b.WriteString("\n        Console.WriteLine($\"Status: {response.StatusCode}\");\n        Console.WriteLine($\"Response: {await response.Content.ReadAsStringAsync()}\");\n    }\n}")
	return b.String()
}

func kotlin(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	b.WriteString("import okhttp3.*\nimport java.io.IOException\n\nfun main() {\n    val client = OkHttpClient()\n\n")
	if hasBody(req) {
		b.WriteString("    val mediaType = MediaType.parse(\"application/json\")\n")
		fmt.Fprintf(&b, "    val body = RequestBody.create(mediaType, \"\"\"%s\"\"\")\n\n", req.Body)
		fmt.Fprintf(&b, "    val request = Request.Builder()\n        .url(\"%s\")\n        .method(\"%s\", body)\n", req.URL, req.Method)
	} else {
		fmt.Fprintf(&b, "    val request = Request.Builder()\n        .url(\"%s\")\n        .method(\"%s\", null)\n", req.URL, req.Method)
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "        .addHeader(\"%s\", \"%s\")\n", h.key, escapeJSON(h.value))
	}
	b.WriteString("        .build()\n\n    client.newCall(request).execute().use { response ->\n        println(\"Status: ${response.code()}\")\n        println(\"Response: ${response.body()?.string()}\")\n    }\n}")
	return b.String()
}

func php(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<?php\n\n$url = \"%s\";\n$method = \"%s\";\n", req.URL, req.Method)
	if len(headers) > 0 {
		lines := make([]string, 0, len(headers))
		for _, h := range headers {
			lines = append(lines, fmt.Sprintf("    \"%s: %s\"", h.key, escapeJSON(h.value)))
		}
		fmt.Fprintf(&b, "$headers = [\n%s\n];\n", strings.Join(lines, ",\n"))
	}
	if hasBody(req) {
		fmt.Fprintf(&b, "$data = '%s';\n", escapeJSON(req.Body))
	}
	b.WriteString("\n$ch = curl_init();\ncurl_setopt($ch, CURLOPT_URL, $url);\ncurl_setopt($ch, CURLOPT_CUSTOMREQUEST, $method);\ncurl_setopt($ch, CURLOPT_RETURNTRANSFER, true);\n")
	if len(headers) > 0 {
		b.WriteString("curl_setopt($ch, CURLOPT_HTTPHEADER, $headers);\n")
	}
	if hasBody(req) {
		b.WriteString("curl_setopt($ch, CURLOPT_POSTFIELDS, $data);\n")
	}
	b.WriteString("\n$response = curl_exec($ch);\n$httpCode = curl_getinfo($ch, CURLINFO_HTTP_CODE);\ncurl_close($ch);\n\necho \"Status: \" . $httpCode . \"\\n\";\necho \"Response: \" . $response . \"\\n\";\n?>")
	return b.String()
}

func rHttr(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "library(httr)\n\nurl <- \"%s\"\n", req.URL)
	if len(headers) > 0 {
		lines := make([]string, 0, len(headers))
		for _, h := range headers {
			lines = append(lines, fmt.Sprintf("  \"%s\" = \"%s\"", h.key, escapeJSON(h.value)))
		}
		fmt.Fprintf(&b, "headers <- c(\n%s\n)\n", strings.Join(lines, ",\n"))
	}
	if hasBody(req) {
		fmt.Fprintf(&b, "body <- '%s'\n", escapeJSON(req.Body))
	}
	fmt.Fprintf(&b, "\nresponse <- %s(url", strings.ToUpper(req.Method))
	if len(headers) > 0 {
		b.WriteString(", add_headers(.headers = headers)")
	}
	if hasBody(req) {
		b.WriteString(", body = body")
	}
	b.WriteString(")\n\ncat(\"Status:\", status_code(response), \"\\n\")\ncat(\"Response:\", content(response, \"text\"), \"\\n\")")
	return b.String()
}

func ruby(req request.HTTPRequest, headers headerList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "require 'net/http'\nrequire 'uri'\n\nuri = URI('%s')\nhttp = Net::HTTP.new(uri.host, uri.port)\nhttp.use_ssl = true if uri.scheme == 'https'\n\n", req.URL)
	fmt.Fprintf(&b, "request = Net::HTTP::%s.new(uri)\n", titleMethod(req.Method))
	for _, h := range headers {
		fmt.Fprintf(&b, "request['%s'] = '%s'\n", h.key, escapeJSON(h.value))
	}
	if hasBody(req) {
		fmt.Fprintf(&b, "request.body = '%s'\n", escapeJSON(req.Body))
	}
	b.WriteString("\nresponse = http.request(request)\n\nputs \"Status: #{response.code}\"\nputs \"Response: #{response.body}\"")
	return b.String()
}
