package stealth

// Patch is one independent environment patch installed as a page init
// script. Every script is a self-contained IIFE that swallows its own
// exceptions, so a patch that does not apply to the current browser build
// leaves the others untouched.
type Patch struct {
	Name   string
	Script string
}

// patches is the ordered list installed on every page. Order only matters
// for readability of debug logs; no patch depends on another.
var patches = []Patch{
	{Name: "webdriver", Script: webdriverPatch},
	{Name: "chrome-runtime", Script: chromeRuntimePatch},
	{Name: "canvas-noise", Script: canvasNoisePatch},
	{Name: "webgl-vendor", Script: webglVendorPatch},
	{Name: "audio-noise", Script: audioNoisePatch},
	{Name: "webrtc", Script: webrtcPatch},
	{Name: "battery", Script: batteryPatch},
	{Name: "permissions", Script: permissionsPatch},
	{Name: "media-devices", Script: mediaDevicesPatch},
	{Name: "plugins", Script: pluginsPatch},
	{Name: "languages", Script: languagesPatch},
	{Name: "timezone", Script: timezonePatch},
	{Name: "screen", Script: screenPatch},
	{Name: "connection", Script: connectionPatch},
	{Name: "hardware", Script: hardwarePatch},
	{Name: "cdc-markers", Script: cdcMarkersPatch},
	{Name: "error-stack", Script: errorStackPatch},
	{Name: "google-detections", Script: googleDetectionsPatch},
	{Name: "recaptcha-indicators", Script: recaptchaIndicatorsPatch},
	{Name: "load-listeners", Script: loadListenersPatch},
	{Name: "mouse-jitter", Script: mouseJitterPatch},
	{Name: "keyboard-jitter", Script: keyboardJitterPatch},
	{Name: "scroll-jitter", Script: scrollJitterPatch},
	{Name: "timer-jitter", Script: timerJitterPatch},
}

const webdriverPatch = `(() => {
  try {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;
    const automationProps = [
      '__webdriver_evaluate', '__selenium_evaluate', '__webdriver_script_function',
      '__webdriver_script_func', '__webdriver_script_fn', '__fxdriver_evaluate',
      '__driver_unwrapped', '__webdriver_unwrapped', '__driver_evaluate',
      '__selenium_unwrapped', '__fxdriver_unwrapped', '_Selenium_IDE_Recorder',
      '_selenium', 'calledSelenium', '$cdc_asdjflasutopfhvcZLmcfl_', '$chrome_asyncScriptInfo',
      '__$webdriverAsyncExecutor', 'webdriver', '__webdriverFunc', 'domAutomation',
      'domAutomationController', '__lastWatirAlert', '__lastWatirConfirm', '__lastWatirPrompt'
    ];
    for (const prop of automationProps) {
      try { delete window[prop]; } catch (e) {}
      try { delete document[prop]; } catch (e) {}
    }
    const getAttribute = Element.prototype.getAttribute;
    Element.prototype.getAttribute = function(name) {
      if (name === 'webdriver' || name === 'selenium' || name === 'driver') return null;
      return getAttribute.call(this, name);
    };
  } catch (e) {}
})();`

const chromeRuntimePatch = `(() => {
  try {
    if (!window.chrome) {
      Object.defineProperty(window, 'chrome', { value: {}, writable: true, enumerable: true, configurable: false });
    }
    if (!window.chrome.runtime) {
      window.chrome.runtime = {
        OnInstalledReason: { CHROME_UPDATE: 'chrome_update', INSTALL: 'install', SHARED_MODULE_UPDATE: 'shared_module_update', UPDATE: 'update' },
        OnRestartRequiredReason: { APP_UPDATE: 'app_update', OS_UPDATE: 'os_update', PERIODIC: 'periodic' },
        PlatformOs: { ANDROID: 'android', CROS: 'cros', LINUX: 'linux', MAC: 'mac', OPENBSD: 'openbsd', WIN: 'win' },
        get id() { return undefined; },
        connect: function() {},
        sendMessage: function() {}
      };
    }
    if (!window.chrome.loadTimes) {
      const started = performance.timeOrigin / 1000;
      window.chrome.loadTimes = function() {
        return {
          requestTime: started, startLoadTime: started, commitLoadTime: started + 0.05,
          finishDocumentLoadTime: started + 0.3, finishLoadTime: started + 0.5,
          firstPaintTime: started + 0.2, firstPaintAfterLoadTime: 0,
          navigationType: 'Other', wasFetchedViaSpdy: true, wasNpnNegotiated: true,
          npnNegotiatedProtocol: 'h2', wasAlternateProtocolAvailable: false, connectionInfo: 'h2'
        };
      };
    }
    if (!window.chrome.csi) {
      window.chrome.csi = function() {
        return { onloadT: Date.now(), startE: Math.floor(performance.timeOrigin), pageT: performance.now(), tran: 15 };
      };
    }
    if (!window.chrome.app) {
      window.chrome.app = {
        isInstalled: false,
        InstallState: { DISABLED: 'disabled', INSTALLED: 'installed', NOT_INSTALLED: 'not_installed' },
        RunningState: { CANNOT_RUN: 'cannot_run', READY_TO_RUN: 'ready_to_run', RUNNING: 'running' },
        getDetails: function() { return null; },
        getIsInstalled: function() { return false; }
      };
    }
  } catch (e) {}
})();`

const canvasNoisePatch = `(() => {
  try {
    const shift = Math.floor(Math.random() * 10) - 5;
    const toDataURL = HTMLCanvasElement.prototype.toDataURL;
    HTMLCanvasElement.prototype.toDataURL = function(...args) {
      const ctx = this.getContext('2d');
      if (ctx && this.width > 0 && this.height > 0) {
        const image = ctx.getImageData(0, 0, this.width, this.height);
        for (let i = 0; i < image.data.length; i += 4) {
          image.data[i] = Math.min(255, Math.max(0, image.data[i] + shift));
        }
        ctx.putImageData(image, 0, 0);
      }
      return toDataURL.apply(this, args);
    };
    const getImageData = CanvasRenderingContext2D.prototype.getImageData;
    CanvasRenderingContext2D.prototype.getImageData = function(...args) {
      const image = getImageData.apply(this, args);
      for (let i = 0; i < image.data.length; i += 16) {
        image.data[i] = Math.min(255, Math.max(0, image.data[i] + shift));
      }
      return image;
    };
  } catch (e) {}
})();`

const webglVendorPatch = `(() => {
  const handler = {
    apply: function(target, ctx, args) {
      if (args[0] === 37445) return 'Intel Inc.';
      if (args[0] === 37446) return 'Intel Iris OpenGL Engine';
      return Reflect.apply(target, ctx, args);
    }
  };
  try {
    WebGLRenderingContext.prototype.getParameter = new Proxy(WebGLRenderingContext.prototype.getParameter, handler);
  } catch (e) {}
  try {
    WebGL2RenderingContext.prototype.getParameter = new Proxy(WebGL2RenderingContext.prototype.getParameter, handler);
  } catch (e) {}
})();`

const audioNoisePatch = `(() => {
  try {
    const getFloat = AnalyserNode.prototype.getFloatFrequencyData;
    AnalyserNode.prototype.getFloatFrequencyData = function(array) {
      const result = getFloat.call(this, array);
      for (let i = 0; i < array.length; i++) {
        array[i] = array[i] + Math.random() * 0.0001;
      }
      return result;
    };
    const getChannelData = AudioBuffer.prototype.getChannelData;
    AudioBuffer.prototype.getChannelData = function(...args) {
      const data = getChannelData.apply(this, args);
      for (let i = 0; i < data.length; i += 100) {
        data[i] = data[i] + Math.random() * 0.0000001;
      }
      return data;
    };
  } catch (e) {}
})();`

const webrtcPatch = `(() => {
  try {
    const Original = window.RTCPeerConnection;
    if (!Original) return;
    const Patched = function(...args) {
      const pc = new Original(...args);
      const createOffer = pc.createOffer.bind(pc);
      pc.createOffer = function(...offerArgs) {
        return createOffer(...offerArgs).then((offer) => {
          if (offer && offer.sdp) {
            offer.sdp = offer.sdp.replace(/a=ice-options:.*\r\n/g, '');
          }
          return offer;
        });
      };
      return pc;
    };
    Patched.prototype = Original.prototype;
    window.RTCPeerConnection = Patched;
  } catch (e) {}
})();`

const batteryPatch = `(() => {
  try {
    if (!navigator.getBattery) return;
    const level = 0.8 + Math.random() * 0.2;
    navigator.getBattery = () => Promise.resolve({
      charging: true, chargingTime: 0, dischargingTime: Infinity, level: level,
      addEventListener: () => {}, removeEventListener: () => {}, dispatchEvent: () => true
    });
  } catch (e) {}
})();`

const permissionsPatch = `(() => {
  try {
    const query = Permissions.prototype.query;
    Permissions.prototype.query = function(parameters) {
      if (parameters && parameters.name === 'notifications') {
        return Promise.resolve({ state: 'prompt', onchange: null });
      }
      return query.call(this, parameters);
    };
    const toString = Function.prototype.toString;
    Function.prototype.toString = function() {
      if (this === Permissions.prototype.query) {
        return 'function query() { [native code] }';
      }
      return toString.call(this);
    };
  } catch (e) {}
})();`

const mediaDevicesPatch = `(() => {
  try {
    if (!navigator.mediaDevices || !navigator.mediaDevices.enumerateDevices) return;
    const enumerate = navigator.mediaDevices.enumerateDevices.bind(navigator.mediaDevices);
    navigator.mediaDevices.enumerateDevices = function() {
      return enumerate().then((devices) => {
        if (devices.length > 0) return devices;
        return [
          { deviceId: 'default', kind: 'audioinput', label: '', groupId: 'default' },
          { deviceId: 'default', kind: 'audiooutput', label: '', groupId: 'default' },
          { deviceId: 'camera', kind: 'videoinput', label: '', groupId: 'camera' }
        ];
      });
    };
  } catch (e) {}
})();`

const pluginsPatch = `(() => {
  try {
    const mockPlugins = [
      { name: 'Chrome PDF Plugin', description: 'Portable Document Format', filename: 'internal-pdf-viewer' },
      { name: 'Chrome PDF Viewer', description: '', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
      { name: 'Native Client', description: '', filename: 'internal-nacl-plugin' }
    ];
    const pluginArray = Object.create(PluginArray.prototype);
    mockPlugins.forEach((p, i) => {
      const plugin = Object.create(Plugin.prototype);
      Object.defineProperties(plugin, {
        name: { value: p.name, enumerable: true },
        description: { value: p.description, enumerable: true },
        filename: { value: p.filename, enumerable: true },
        length: { value: 1, enumerable: true }
      });
      pluginArray[i] = plugin;
      pluginArray[p.name] = plugin;
    });
    Object.defineProperty(pluginArray, 'length', { value: mockPlugins.length });
    Object.defineProperty(pluginArray, 'item', { value: (i) => pluginArray[i] || null });
    Object.defineProperty(pluginArray, 'namedItem', { value: (n) => pluginArray[n] || null });
    Object.defineProperty(pluginArray, 'refresh', { value: () => {} });
    Object.defineProperty(navigator, 'plugins', { get: () => pluginArray, configurable: true });
  } catch (e) {}
})();`

const languagesPatch = `(() => {
  try {
    Object.defineProperty(navigator, 'languages', { get: () => Object.freeze(['en-US', 'en']), configurable: true });
    Object.defineProperty(navigator, 'language', { get: () => 'en-US', configurable: true });
  } catch (e) {}
})();`

const timezonePatch = `(() => {
  try {
    Date.prototype.getTimezoneOffset = function() { return 300; };
    const resolvedOptions = Intl.DateTimeFormat.prototype.resolvedOptions;
    Intl.DateTimeFormat.prototype.resolvedOptions = function() {
      const options = resolvedOptions.call(this);
      options.timeZone = 'America/New_York';
      return options;
    };
  } catch (e) {}
})();`

const screenPatch = `(() => {
  try {
    const props = { width: 1920, height: 1080, availWidth: 1920, availHeight: 1040, colorDepth: 24, pixelDepth: 24 };
    for (const [key, value] of Object.entries(props)) {
      Object.defineProperty(screen, key, { get: () => value, configurable: true });
    }
    Object.defineProperty(window, 'outerWidth', { get: () => 1920, configurable: true });
    Object.defineProperty(window, 'outerHeight', { get: () => 1080, configurable: true });
  } catch (e) {}
})();`

const connectionPatch = `(() => {
  try {
    const connection = { effectiveType: '4g', rtt: 50, downlink: 10, saveData: false, onchange: null,
      addEventListener: () => {}, removeEventListener: () => {} };
    Object.defineProperty(navigator, 'connection', { get: () => connection, configurable: true });
  } catch (e) {}
})();`

const hardwarePatch = `(() => {
  try {
    if (!navigator.hardwareConcurrency) {
      Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8, configurable: true });
    }
    if (!navigator.deviceMemory) {
      Object.defineProperty(navigator, 'deviceMemory', { get: () => 8, configurable: true });
    }
  } catch (e) {}
})();`

const cdcMarkersPatch = `(() => {
  try {
    for (const key of Object.keys(window)) {
      if (key.startsWith('cdc_') || key.startsWith('$cdc_') || key.startsWith('__playwright') || key.startsWith('__pw')) {
        try { delete window[key]; } catch (e) {}
      }
    }
    const hook = '__REACT_DEVTOOLS_GLOBAL_HOOK__';
    if (window[hook] && !window[hook].renderers) {
      delete window[hook];
    }
  } catch (e) {}
})();`

const errorStackPatch = `(() => {
  try {
    const addEventListener = window.addEventListener;
    window.addEventListener = function(type, listener, options) {
      if (type === 'error' && typeof listener === 'function') {
        const wrapped = function(event) {
          if (event && event.filename && /puppeteer|playwright|chromedp|__cdp/i.test(event.filename)) return;
          return listener.call(this, event);
        };
        return addEventListener.call(this, type, wrapped, options);
      }
      return addEventListener.call(this, type, listener, options);
    };
  } catch (e) {}
})();`

const googleDetectionsPatch = `(() => {
  try {
    const consoleError = console.error;
    console.error = function(...args) {
      const text = args.map((a) => String(a)).join(' ');
      if (/devtools|automation|webdriver/i.test(text)) return;
      return consoleError.apply(this, args);
    };
    Object.defineProperty(navigator, 'maxTouchPoints', { get: () => 0, configurable: true });
  } catch (e) {}
})();`

const recaptchaIndicatorsPatch = `(() => {
  try {
    const hasOwn = Object.prototype.hasOwnProperty;
    const hidden = new Set(['webdriver', '__webdriver_script_fn', '__driver_evaluate', 'callPhantom', '_phantom']);
    Object.prototype.hasOwnProperty = function(prop) {
      if ((this === window || this === navigator || this === document) && hidden.has(prop)) return false;
      return hasOwn.call(this, prop);
    };
  } catch (e) {}
})();`

const loadListenersPatch = `(() => {
  try {
    const addEventListener = EventTarget.prototype.addEventListener;
    EventTarget.prototype.addEventListener = function(type, listener, options) {
      if ((type === 'load' || type === 'DOMContentLoaded') && typeof listener === 'function') {
        const delayed = function(event) {
          const self = this;
          setTimeout(() => listener.call(self, event), Math.floor(Math.random() * 20));
        };
        return addEventListener.call(this, type, delayed, options);
      }
      return addEventListener.call(this, type, listener, options);
    };
  } catch (e) {}
})();`

const mouseJitterPatch = `(() => {
  try {
    const addEventListener = EventTarget.prototype.addEventListener;
    EventTarget.prototype.addEventListener = function(type, listener, options) {
      if (type === 'mousemove' && typeof listener === 'function') {
        const jittered = function(event) {
          try {
            const dx = (Math.random() - 0.5) * 0.5;
            const dy = (Math.random() - 0.5) * 0.5;
            Object.defineProperty(event, 'clientX', { value: event.clientX + dx });
            Object.defineProperty(event, 'clientY', { value: event.clientY + dy });
          } catch (e) {}
          return listener.call(this, event);
        };
        return addEventListener.call(this, type, jittered, options);
      }
      return addEventListener.call(this, type, listener, options);
    };
  } catch (e) {}
})();`

const keyboardJitterPatch = `(() => {
  try {
    const addEventListener = EventTarget.prototype.addEventListener;
    EventTarget.prototype.addEventListener = function(type, listener, options) {
      if ((type === 'keydown' || type === 'keyup' || type === 'keypress') && typeof listener === 'function') {
        const delayed = function(event) {
          const self = this;
          setTimeout(() => listener.call(self, event), 10 + Math.floor(Math.random() * 50));
        };
        return addEventListener.call(this, type, delayed, options);
      }
      return addEventListener.call(this, type, listener, options);
    };
  } catch (e) {}
})();`

const scrollJitterPatch = `(() => {
  try {
    const addEventListener = EventTarget.prototype.addEventListener;
    EventTarget.prototype.addEventListener = function(type, listener, options) {
      if ((type === 'scroll' || type === 'wheel') && typeof listener === 'function') {
        const delayed = function(event) {
          const self = this;
          setTimeout(() => listener.call(self, event), Math.floor(Math.random() * 15));
        };
        return addEventListener.call(this, type, delayed, options);
      }
      return addEventListener.call(this, type, listener, options);
    };
    const scrollTo = window.scrollTo;
    window.scrollTo = function(...args) {
      setTimeout(() => scrollTo.apply(window, args), Math.floor(Math.random() * 10));
    };
    const scroll = window.scroll;
    window.scroll = function(...args) {
      setTimeout(() => scroll.apply(window, args), Math.floor(Math.random() * 10));
    };
  } catch (e) {}
})();`

const timerJitterPatch = `(() => {
  try {
    const setTimeoutFn = window.setTimeout;
    window.setTimeout = function(handler, timeout, ...args) {
      const jitter = typeof timeout === 'number' && timeout > 0 ? Math.floor(Math.random() * 5) : 0;
      return setTimeoutFn.call(this, handler, (timeout || 0) + jitter, ...args);
    };
    const setIntervalFn = window.setInterval;
    window.setInterval = function(handler, timeout, ...args) {
      const jitter = typeof timeout === 'number' && timeout > 0 ? Math.floor(Math.random() * 3) : 0;
      return setIntervalFn.call(this, handler, (timeout || 0) + jitter, ...args);
    };
  } catch (e) {}
})();`
