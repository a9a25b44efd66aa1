package web

const baseCSS = `:root {
  font-family: "Inter", "SF Pro Display", system-ui, -apple-system, sans-serif;
  color-scheme: light dark;
  --bg: #0f172a;
  --surface: rgba(15, 23, 42, 0.6);
  --border: rgba(248, 250, 252, 0.08);
  --text: #f8fafc;
  --muted: #cbd5f5;
  --accent: #38bdf8;
  --danger: #f87171;
  --ok: #4ade80;
}
body {
  margin: 0;
  background: linear-gradient(135deg, #020617, #0f172a 60%, #1e293b);
  color: var(--text);
  min-height: 100vh;
}
.topbar {
  display: flex;
  justify-content: space-between;
  align-items: center;
  padding: 1rem 4vw;
  border-bottom: 1px solid var(--border);
  position: sticky;
  top: 0;
  background: rgba(2, 6, 23, 0.9);
  z-index: 10;
}
.topbar a {
  color: var(--muted);
  text-decoration: none;
  margin-left: 1.5rem;
}
.logo {
  font-weight: 700;
  letter-spacing: 0.08em;
}
.container {
  max-width: 1100px;
  margin: 0 auto;
  padding: 2rem 4vw 4rem;
  display: flex;
  flex-direction: column;
  gap: 1.5rem;
}
.container form {
  display: flex;
  flex-direction: column;
  gap: 1.5rem;
}
.component {
  background: var(--surface);
  border: 1px solid var(--border);
  border-radius: 18px;
  padding: 1.75rem;
}
.hero {
  text-align: center;
}
.hero h1 {
  margin: 0 0 1rem;
  font-size: clamp(2rem, 5vw, 3.2rem);
}
figure {
  margin: 1rem 0 0;
}
figure img {
  max-width: 100%;
  border-radius: 12px;
}
figcaption {
  color: var(--muted);
  font-size: 0.85rem;
}
.text {
  font-size: 1.05rem;
  color: var(--muted);
}
.section-heading {
  margin: 1rem 0 0;
}
textarea, input[type=text] {
  width: 100%;
  box-sizing: border-box;
  background: rgba(2, 6, 23, 0.7);
  color: var(--text);
  border: 1px solid var(--border);
  border-radius: 10px;
  padding: 0.75rem;
  font-family: "JetBrains Mono", ui-monospace, monospace;
  font-size: 0.95rem;
}
button {
  margin-top: 0.75rem;
  margin-right: 0.5rem;
  background: var(--accent);
  color: #020617;
  border: none;
  border-radius: 10px;
  padding: 0.55rem 1.2rem;
  font-weight: 600;
  cursor: pointer;
}
button.secondary {
  background: transparent;
  color: var(--accent);
  border: 1px solid var(--accent);
}
.result {
  margin-top: 1rem;
}
.alert {
  border-radius: 10px;
  padding: 0.75rem 1rem;
}
.alert-error {
  background: rgba(248, 113, 113, 0.12);
  border: 1px solid var(--danger);
}
.alert-success {
  background: rgba(74, 222, 128, 0.12);
  border: 1px solid var(--ok);
}
.alert-info {
  background: rgba(56, 189, 248, 0.08);
  border: 1px solid rgba(56, 189, 248, 0.4);
}
.table-wrapper {
  overflow-x: auto;
}
.table-note {
  color: var(--muted);
  font-size: 0.8rem;
  margin-top: 0.4rem;
}
table {
  width: 100%;
  border-collapse: collapse;
}
th, td {
  text-align: left;
  padding: 0.65rem 0.5rem;
  border-bottom: 1px solid rgba(248, 250, 252, 0.08);
}
th {
  text-transform: uppercase;
  font-size: 0.7rem;
  letter-spacing: 0.12em;
  color: var(--muted);
}
tr:last-child td {
  border-bottom: none;
}
`

const defaultTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>{{.Title}}</title>
<style>{{.Styles}}</style>
</head>
<body>
<header class="topbar">
    <div class="logo">{{.Title}}</div>
    <nav><a href="/">Start over</a><a href="/api/schema">Schema</a></nav>
</header>
<main class="container"><form method="post" action="/run">{{.Body}}</form></main>
</body>
</html>`
