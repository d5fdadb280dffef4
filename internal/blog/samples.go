package blog

import "time"

// SamplePosts are the posts `site seed` inserts.
func SamplePosts(now time.Time) []Post {
	day := 24 * time.Hour
	return []Post{
		{
			Title:       "Shipping a faster landing page",
			Author:      "Site Team",
			Tags:        []string{"performance", "seo"},
			BodyHTML:    `<p>Prerendering the pages that never change took our landing page from a blank shell to <strong>content on first byte</strong>.</p><h2>What changed</h2><p>The home, about and legal pages are rendered once at build time. Everything else still renders on demand.</p>`,
			CoverImage:  "/assets/img/landing.png",
			PublishedAt: now.Add(-2 * day),
		},
		{
			Title:       "How our blog renders on the server",
			Author:      "Site Team",
			Tags:        []string{"engineering"},
			BodyHTML:    `<p>Every blog request fetches exactly the data the page needs, renders it to HTML and embeds a snapshot so the browser does not fetch it again.</p><script>alert(1)</script><p>Hydration then picks up the markup as-is.</p>`,
			PublishedAt: now.Add(-7 * day),
		},
		{
			Title:       "Welcome",
			Author:      "Site Team",
			Tags:        []string{"news"},
			BodyHTML:    `<p>Hello and welcome to the new blog. <a href="/about">Read about us</a>.</p>`,
			PublishedAt: now.Add(-30 * day),
		},
	}
}
