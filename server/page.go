package server

import (
	"html/template"
)

type pageData struct {
	SessionID     string
	FailureNotice string
}

// pageTemplate is the widget. All turn markup comes from the server already
// escaped; the only client-side rendering is the optimistic user turn, which
// is built from text nodes.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Chat</title>
    <style>
        body {
            margin: 0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: #FFF8F0;
            color: #2C1F3D;
            display: flex;
            flex-direction: column;
            height: 100vh;
        }
        header {
            display: flex;
            align-items: center;
            gap: 1rem;
            padding: 0.5rem 1rem;
            border-bottom: 1px solid #e0e0e0;
        }
        .menu-btn {
            font-size: 1.5rem;
            background: none;
            border: none;
            cursor: pointer;
            color: #6B4C8A;
        }
        .side-menu {
            position: fixed;
            top: 0;
            left: 0;
            height: 100%;
            width: 0;
            overflow-x: hidden;
            background: #2C1F3D;
            transition: width 0.3s;
            z-index: 10;
        }
        .side-menu a {
            display: block;
            padding: 1rem 1.5rem;
            color: white;
            text-decoration: none;
            white-space: nowrap;
        }
        .settings-slider {
            position: fixed;
            top: 0;
            right: 0;
            height: 100%;
            width: 0;
            overflow-x: hidden;
            background: white;
            box-shadow: -2px 0 8px rgba(0, 0, 0, 0.1);
            transition: width 0.3s;
            z-index: 20;
        }
        .settings-inner {
            padding: 1.5rem;
            min-width: 280px;
        }
        .key-row {
            display: flex;
            align-items: center;
            gap: 0.5rem;
        }
        .key-row input {
            flex: 1;
            padding: 8px 10px;
            border: 2px solid #e0e0e0;
            border-radius: 8px;
        }
        .status-dot {
            width: 12px;
            height: 12px;
            border-radius: 50%;
            border: 1px solid #ccc;
            background: transparent;
        }
        #chat-container {
            flex: 1;
            overflow-y: auto;
            padding: 1rem;
            max-width: 700px;
            width: 100%;
            margin: 0 auto;
            box-sizing: border-box;
        }
        .user-message, .ai-message {
            padding: 0.75rem 1rem;
            border-radius: 12px;
            margin: 0.5rem 0;
            max-width: 80%;
            word-wrap: break-word;
        }
        .user-message {
            background: #6B4C8A;
            color: white;
            margin-left: auto;
        }
        .ai-message {
            background: white;
            border: 1px solid #e0e0e0;
        }
        .input-row {
            display: flex;
            gap: 0.5rem;
            padding: 1rem;
            max-width: 700px;
            width: 100%;
            margin: 0 auto;
            box-sizing: border-box;
        }
        .input-row textarea {
            flex: 1;
            padding: 10px;
            border: 2px solid #e0e0e0;
            border-radius: 8px;
            resize: none;
            font: inherit;
        }
        button.primary {
            padding: 8px 16px;
            background: #6B4C8A;
            color: white;
            border: none;
            border-radius: 8px;
            cursor: pointer;
        }
        button.primary:disabled {
            background: #bbb;
            cursor: not-allowed;
        }
    </style>
</head>
<body data-session="{{.SessionID}}">
    <nav id="side-menu" class="side-menu">
        <a href="#" id="close-menu">&times; Close</a>
        <a href="#" id="open-settings">API and Settings</a>
    </nav>
    <aside id="settings-slider" class="settings-slider">
        <div class="settings-inner">
            <h3>API and Settings</h3>
            <div class="key-row">
                <input type="password" id="api-key" placeholder="API key" autocomplete="off">
                <span id="status-dot" class="status-dot"></span>
            </div>
            <p>
                <button class="primary" id="apply-key" disabled>Apply</button>
                <button class="primary" id="close-settings">Close</button>
            </p>
        </div>
    </aside>
    <header>
        <button class="menu-btn" id="menu-btn" aria-label="Menu">&#9776;</button>
        <strong>Chat</strong>
    </header>
    <div id="chat-container"></div>
    <div class="input-row">
        <textarea id="user-input" rows="2" placeholder="Type a message"></textarea>
        <button class="primary" id="send-btn">Send</button>
    </div>
<script>
(function () {
    var session = document.body.getAttribute("data-session");
    var chat = document.getElementById("chat-container");
    var input = document.getElementById("user-input");
    var keyField = document.getElementById("api-key");
    var dot = document.getElementById("status-dot");
    var applyBtn = document.getElementById("apply-key");
    var menu = document.getElementById("side-menu");
    var slider = document.getElementById("settings-slider");
    var latestGeneration = 0;
    var failureNotice = {{.FailureNotice}};

    function post(path, body) {
        return fetch(path, {
            method: "POST",
            headers: {"Content-Type": "application/json"},
            body: JSON.stringify(body)
        });
    }

    function appendHTML(fragment) {
        chat.insertAdjacentHTML("beforeend", fragment);
        chat.scrollTop = chat.scrollHeight;
    }

    function appendUserTurn(text) {
        var div = document.createElement("div");
        div.className = "user-message";
        text.split("\n").forEach(function (line, i) {
            if (i > 0) {
                div.appendChild(document.createElement("br"));
            }
            div.appendChild(document.createTextNode(line));
        });
        chat.appendChild(div);
        chat.scrollTop = chat.scrollHeight;
    }

    function appendFailure() {
        var div = document.createElement("div");
        div.className = "ai-message";
        div.textContent = failureNotice;
        chat.appendChild(div);
        chat.scrollTop = chat.scrollHeight;
    }

    function send() {
        var text = input.value;
        if (text.trim() === "") {
            return;
        }
        var credential = keyField.value;
        input.value = "";
        // The server appends no user turn when the key is missing
        if (credential.trim() !== "") {
            appendUserTurn(text.trim());
        }
        post("/api/send", {session: session, text: text, credential: credential})
            .then(function (res) {
                if (res.status === 204) {
                    return null;
                }
                if (res.status === 404) {
                    appendHTML('<div class="ai-message">Session expired. Reload the page.</div>');
                    return null;
                }
                if (!res.ok) {
                    appendFailure();
                    return null;
                }
                return res.json();
            })
            .then(function (data) {
                if (!data || !data.turns) {
                    return;
                }
                data.turns.forEach(function (turn) {
                    if (turn.sender === "assistant") {
                        appendHTML(turn.html);
                    }
                });
            })
            .catch(appendFailure);
    }

    function showIndicator(res) {
        // A superseded check carries no status of its own
        if (res.stale || res.generation < latestGeneration) {
            return;
        }
        latestGeneration = res.generation;
        dot.style.backgroundColor = res.color;
        applyBtn.disabled = !res.apply_enabled;
    }

    function resetIndicator() {
        dot.style.backgroundColor = "transparent";
        applyBtn.disabled = true;
    }

    var checkSeq = 0;
    keyField.addEventListener("input", function () {
        var seq = ++checkSeq;
        post("/api/credential", {session: session, credential: keyField.value})
            .then(function (res) { return res.ok ? res.json() : null; })
            .then(function (data) {
                if (data) {
                    showIndicator(data);
                } else if (seq === checkSeq) {
                    resetIndicator();
                }
            })
            .catch(function () {
                if (seq === checkSeq) {
                    resetIndicator();
                }
            });
    });

    applyBtn.addEventListener("click", function () {
        post("/api/credential/apply", {session: session, credential: keyField.value})
            .then(function (res) { return res.json(); })
            .then(function (data) { alert(data.message || data.error); });
    });

    input.addEventListener("keydown", function (e) {
        if (e.key === "Enter" && !e.shiftKey) {
            e.preventDefault();
            send();
        }
    });
    document.getElementById("send-btn").addEventListener("click", send);

    document.getElementById("menu-btn").addEventListener("click", function () {
        menu.style.width = menu.style.width === "250px" ? "0" : "250px";
    });
    document.getElementById("close-menu").addEventListener("click", function (e) {
        e.preventDefault();
        menu.style.width = "0";
    });
    document.getElementById("open-settings").addEventListener("click", function (e) {
        e.preventDefault();
        slider.style.width = slider.style.width === "320px" ? "0" : "320px";
    });
    document.getElementById("close-settings").addEventListener("click", function () {
        slider.style.width = "0";
    });
})();
</script>
</body>
</html>
`))
